// Package probe reads what a physical device reports into plain snapshots the
// negotiate package can choose from.
package probe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/bootstrap/negotiate"
)

// Surface pairs a presentation surface with the extension driver that queries it.
type Surface struct {
	Extension khr_surface.ExtensionDriver
	Handle    khr_surface.Surface
}

// Snapshot is everything the bootstrap needs to know about one physical device.
type Snapshot struct {
	Device core1_0.PhysicalDevice

	Name                string
	Discrete            bool
	APIVersion          string
	VendorID            uint32
	DeviceID            uint32
	MaxImageDimension2D int
	PipelineCacheUUID   uuid.UUID
	SamplerAnisotropy   bool

	QueueFamilies []negotiate.QueueFamily
	MemoryTypes   []negotiate.MemoryType
	Extensions    map[string]struct{}

	// Surface half, empty without a surface.
	HasSurface     bool
	PresentSupport []bool
	SurfaceFormats []khr_surface.SurfaceFormat
	PresentModes   []khr_surface.PresentMode
}

// Gather fills a snapshot for device. surface may be nil.
func Gather(ctx context.Context, instance core1_0.CoreInstanceDriver, surface *Surface, device core1_0.PhysicalDevice) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	props, err := instance.GetPhysicalDeviceProperties(device)
	if err != nil {
		return nil, errors.Wrap(err, "get physical device properties")
	}

	snap := &Snapshot{
		Device:              device,
		Name:                props.DriverName,
		Discrete:            props.DriverType == core1_0.PhysicalDeviceTypeDiscreteGPU,
		APIVersion:          props.APIVersion.String(),
		VendorID:            props.VendorID,
		DeviceID:            props.DeviceID,
		PipelineCacheUUID:   props.PipelineCacheUUID,
		MaxImageDimension2D: props.Limits.MaxImageDimension2D,
		SamplerAnisotropy:   instance.GetPhysicalDeviceFeatures(device).SamplerAnisotropy,
	}

	for _, family := range instance.GetPhysicalDeviceQueueFamilyProperties(device) {
		snap.QueueFamilies = append(snap.QueueFamilies, negotiate.QueueFamily{
			Flags:      family.QueueFlags,
			QueueCount: family.QueueCount,
		})
	}

	memProps := instance.GetPhysicalDeviceMemoryProperties(device)
	for _, memoryType := range memProps.MemoryTypes {
		snap.MemoryTypes = append(snap.MemoryTypes, negotiate.MemoryType{
			PropertyFlags: memoryType.PropertyFlags,
			HeapIndex:     memoryType.HeapIndex,
		})
	}

	extensions, _, err := instance.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return nil, errors.Wrapf(err, "enumerate extensions of %s", snap.Name)
	}
	snap.Extensions = make(map[string]struct{}, len(extensions))
	for name := range extensions {
		snap.Extensions[name] = struct{}{}
	}

	if surface == nil {
		return snap, nil
	}

	if err := snap.gatherSurface(surface); err != nil {
		return nil, errors.Wrapf(err, "query surface support of %s", snap.Name)
	}
	return snap, nil
}

func (s *Snapshot) gatherSurface(surface *Surface) error {
	s.HasSurface = true
	s.PresentSupport = make([]bool, len(s.QueueFamilies))
	for i := range s.QueueFamilies {
		supported, _, err := surface.Extension.GetPhysicalDeviceSurfaceSupport(surface.Handle, s.Device, i)
		if err != nil {
			return err
		}
		s.PresentSupport[i] = supported
	}

	var err error
	s.SurfaceFormats, _, err = surface.Extension.GetPhysicalDeviceSurfaceFormats(surface.Handle, s.Device)
	if err != nil {
		return err
	}

	s.PresentModes, _, err = surface.Extension.GetPhysicalDeviceSurfacePresentModes(surface.Handle, s.Device)
	return err
}

// GatherAll probes every device concurrently. Snapshots keep the order of devices.
func GatherAll(ctx context.Context, instance core1_0.CoreInstanceDriver, surface *Surface, devices []core1_0.PhysicalDevice) ([]*Snapshot, error) {
	snaps := make([]*Snapshot, len(devices))

	group, ctx := errgroup.WithContext(ctx)
	for i, device := range devices {
		group.Go(func() error {
			snap, err := Gather(ctx, instance, surface, device)
			if err != nil {
				return errors.Wrapf(err, "probe device %d", i)
			}
			snaps[i] = snap
			slog.Debug("probed device", "index", i, "name", snap.Name, "queue_families", len(snap.QueueFamilies))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// SurfacePredicate answers presentation support from the gathered table. Without a
// surface it returns nil.
func (s *Snapshot) SurfacePredicate() negotiate.SurfacePredicate {
	if !s.HasSurface {
		return nil
	}

	return func(i int) bool {
		return i >= 0 && i < len(s.PresentSupport) && s.PresentSupport[i]
	}
}

func (s *Snapshot) QueueFamilyIndices() negotiate.QueueFamilyIndices {
	return negotiate.SelectQueueFamilies(s.QueueFamilies, s.SurfacePredicate())
}

// MissingExtensions lists required device extensions the device does not offer.
func (s *Snapshot) MissingExtensions(required []string) []string {
	return negotiate.Unsupported(required, s.Extensions)
}

func (s *Snapshot) HasExtension(name string) bool {
	_, ok := s.Extensions[name]
	return ok
}

// Candidate reduces the snapshot to what device selection compares. A device is
// suitable when it has a graphics family, every required extension and, if a
// surface is in use, a presenting family plus at least one format and present mode.
func (s *Snapshot) Candidate(requiredExtensions []string) negotiate.DeviceCandidate {
	indices := s.QueueFamilyIndices()

	suitable := indices.Graphics != negotiate.NotFound && len(s.MissingExtensions(requiredExtensions)) == 0
	if s.HasSurface {
		suitable = suitable && indices.Complete() && len(s.SurfaceFormats) > 0 && len(s.PresentModes) > 0
	}

	return negotiate.DeviceCandidate{
		Name:                s.Name,
		Discrete:            s.Discrete,
		MaxImageDimension2D: s.MaxImageDimension2D,
		Suitable:            suitable,
	}
}

func Candidates(snaps []*Snapshot, requiredExtensions []string) []negotiate.DeviceCandidate {
	candidates := make([]negotiate.DeviceCandidate, 0, len(snaps))
	for _, snap := range snaps {
		candidates = append(candidates, snap.Candidate(requiredExtensions))
	}
	return candidates
}

// FormatQuery binds format property lookups to this device.
func (s *Snapshot) FormatQuery(instance core1_0.CoreInstanceDriver) negotiate.FormatQuery {
	return func(format core1_0.Format) negotiate.FormatProperties {
		props := instance.GetPhysicalDeviceFormatProperties(s.Device, format)
		return negotiate.FormatProperties{
			LinearTilingFeatures:  props.LinearTilingFeatures,
			OptimalTilingFeatures: props.OptimalTilingFeatures,
		}
	}
}

func (s *Snapshot) String() string {
	kind := "other"
	if s.Discrete {
		kind = "discrete"
	}
	return fmt.Sprintf("%s (%s) vendor=0x%x device=0x%x api=%s cache=%s queue_families=%d memory_types=%d extensions=%d",
		s.Name, kind, s.VendorID, s.DeviceID, s.APIVersion, s.PipelineCacheUUID,
		len(s.QueueFamilies), len(s.MemoryTypes), len(s.Extensions))
}
