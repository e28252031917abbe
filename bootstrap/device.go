package bootstrap

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/bootstrap/negotiate"
	"github.com/vkngwrapper/bootstrap/probe"
)

func (b *Bootstrap) probeSurface() *probe.Surface {
	if !b.surface.Initialized() {
		return nil
	}
	return &probe.Surface{Extension: b.surfaceExtension, Handle: b.surface}
}

// Probe snapshots every physical device the instance can see.
func (b *Bootstrap) Probe(ctx context.Context) ([]*probe.Snapshot, error) {
	physicalDevices, _, err := b.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	b.devices, err = probe.GatherAll(ctx, b.instanceDriver, b.probeSurface(), physicalDevices)
	if err != nil {
		return nil, err
	}
	return b.devices, nil
}

func (b *Bootstrap) PickPhysicalDevice(ctx context.Context) error {
	snaps, err := b.Probe(ctx)
	if err != nil {
		return err
	}

	required := b.requiredDeviceExtensions()
	idx, err := negotiate.SelectDevice(probe.Candidates(snaps, required), b.cfg.PreferredDevice)
	if err != nil {
		for _, snap := range snaps {
			b.log.Warn("device rejected", "name", snap.Name, "missing_extensions", snap.MissingExtensions(required))
		}
		return err
	}

	b.physicalDevice = snaps[idx]
	if b.cfg.PreferredDevice != "" && b.physicalDevice.Name != b.cfg.PreferredDevice {
		b.log.Warn("preferred device not usable", "preferred", b.cfg.PreferredDevice)
	}

	b.queueFamilies = b.physicalDevice.QueueFamilyIndices()
	b.log.Info("selected physical device",
		"name", b.physicalDevice.Name,
		"discrete", b.physicalDevice.Discrete,
		"graphics_family", b.queueFamilies.Graphics,
		"present_family", b.queueFamilies.Present)
	return nil
}

// requiredDeviceExtensions drops the swapchain requirement when nothing presents.
func (b *Bootstrap) requiredDeviceExtensions() []string {
	if b.cfg.Backend.Presents() {
		return b.cfg.DeviceExtensions
	}

	var required []string
	for _, name := range b.cfg.DeviceExtensions {
		if name != khr_swapchain.ExtensionName {
			required = append(required, name)
		}
	}
	return required
}

// QueueCreateInfos asks for one queue from each distinct family in indices.
func QueueCreateInfos(indices negotiate.QueueFamilyIndices) []core1_0.DeviceQueueCreateInfo {
	var infos []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, family := range indices.Unique() {
		infos = append(infos, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{queuePriority},
		})
	}
	return infos
}

func (b *Bootstrap) InitDevice(ctx context.Context) error {
	if b.queueFamilies.Graphics == negotiate.NotFound {
		return errors.New("no graphics queue family")
	}
	if b.cfg.Backend.Presents() && !b.queueFamilies.Complete() {
		return errors.New("no presentation capable queue family")
	}

	extensionNames := append([]string(nil), b.requiredDeviceExtensions()...)

	// Required on portability implementations such as MoltenVK.
	if b.physicalDevice.HasExtension(khr_portability_subset.ExtensionName) {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	device, _, err := b.instanceDriver.CreateDevice(b.physicalDevice.Device, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: QueueCreateInfos(b.queueFamilies),
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: b.physicalDevice.SamplerAnisotropy,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrapf(err, "create logical device on %s", b.physicalDevice.Name)
	}

	b.deviceDriver, err = b.instanceDriver.BuildDeviceDriver(device)
	if err != nil {
		return errors.Wrap(err, "build device driver")
	}

	b.graphicsQueue = b.deviceDriver.GetQueue(b.queueFamilies.Graphics, 0)
	if b.queueFamilies.Present != negotiate.NotFound {
		b.presentQueue = b.deviceDriver.GetQueue(b.queueFamilies.Present, 0)
	}
	return nil
}
