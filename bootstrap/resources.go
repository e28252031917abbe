package bootstrap

import (
	"context"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/bootstrap/geometry"
	"github.com/vkngwrapper/bootstrap/negotiate"
)

// Barrier is an image layout transition with the stages and access masks it
// synchronizes.
type Barrier struct {
	SrcStage core1_0.PipelineStageFlags
	DstStage core1_0.PipelineStageFlags
	Image    core1_0.ImageMemoryBarrier
}

// TransitionBarrier builds the barrier for one of the layout changes the bootstrap
// performs. Depth formats with a stencil component get both aspects.
func TransitionBarrier(image core1_0.Image, format core1_0.Format, oldLayout, newLayout core1_0.ImageLayout) (Barrier, error) {
	barrier := Barrier{
		Image: core1_0.ImageMemoryBarrier{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		},
	}

	switch {
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		barrier.Image.DstAccessMask = core1_0.AccessTransferWrite
		barrier.SrcStage = core1_0.PipelineStageTopOfPipe
		barrier.DstStage = core1_0.PipelineStageTransfer
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		barrier.Image.SrcAccessMask = core1_0.AccessTransferWrite
		barrier.Image.DstAccessMask = core1_0.AccessShaderRead
		barrier.SrcStage = core1_0.PipelineStageTransfer
		barrier.DstStage = core1_0.PipelineStageFragmentShader
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutDepthStencilAttachmentOptimal:
		barrier.Image.SubresourceRange.AspectMask = core1_0.ImageAspectDepth
		if negotiate.HasStencilComponent(format) {
			barrier.Image.SubresourceRange.AspectMask |= core1_0.ImageAspectStencil
		}
		barrier.Image.DstAccessMask = core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite
		barrier.SrcStage = core1_0.PipelineStageTopOfPipe
		barrier.DstStage = core1_0.PipelineStageEarlyFragmentTests
	default:
		return barrier, errors.Errorf("unexpected layout transition: %s -> %s", oldLayout, newLayout)
	}

	return barrier, nil
}

func (b *Bootstrap) transitionImageLayout(ctx context.Context, image core1_0.Image, format core1_0.Format, oldLayout, newLayout core1_0.ImageLayout) error {
	barrier, err := TransitionBarrier(image, format, oldLayout, newLayout)
	if err != nil {
		return err
	}

	buffer, err := b.BeginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = b.deviceDriver.CmdPipelineBarrier(buffer, barrier.SrcStage, barrier.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier.Image})
	if err != nil {
		b.deviceDriver.FreeCommandBuffers(buffer)
		return errors.Wrap(err, "record pipeline barrier")
	}

	return b.EndSingleTimeCommands(ctx, buffer)
}

// allocate finds a memory type allowed by typeBits with the required flags, preferring
// one that also has the preferred flags, and allocates size bytes from it.
func (b *Bootstrap) allocate(size int, typeBits uint32, required, preferred core1_0.MemoryPropertyFlags) (core1_0.DeviceMemory, error) {
	memoryTypeIndex, err := negotiate.SelectMemoryTypePreferred(b.physicalDevice.MemoryTypes, typeBits, required, preferred)
	if err != nil {
		return core1_0.DeviceMemory{}, err
	}

	memory, _, err := b.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	return memory, errors.Wrapf(err, "allocate %d bytes from memory type %d", size, memoryTypeIndex)
}

func (b *Bootstrap) InitDepthBuffer(ctx context.Context) error {
	if !b.swapchain.Initialized() {
		return nil
	}

	var err error
	b.depthFormat, err = negotiate.SelectDepthFormat(b.physicalDevice.FormatQuery(b.instanceDriver))
	if err != nil {
		return err
	}

	b.depthImage, _, err = b.deviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  b.swapchainExtent.Width,
			Height: b.swapchainExtent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        b.depthFormat,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         core1_0.ImageUsageDepthStencilAttachment,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return errors.Wrap(err, "create depth image")
	}

	memReqs := b.deviceDriver.GetImageMemoryRequirements(b.depthImage)
	b.depthMemory, err = b.allocate(memReqs.Size, memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal, 0)
	if err != nil {
		return err
	}

	if _, err = b.deviceDriver.BindImageMemory(b.depthImage, b.depthMemory, 0); err != nil {
		return errors.Wrap(err, "bind depth memory")
	}

	aspect := core1_0.ImageAspectDepth
	if negotiate.HasStencilComponent(b.depthFormat) {
		aspect |= core1_0.ImageAspectStencil
	}
	b.depthView, err = b.createImageView(b.depthImage, b.depthFormat, aspect)
	if err != nil {
		return err
	}

	b.log.Debug("depth buffer created", "format", b.depthFormat, "extent", b.swapchainExtent)
	return b.transitionImageLayout(ctx, b.depthImage, b.depthFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
}

func (b *Bootstrap) destroyDepthBuffer() {
	if b.depthView.Initialized() {
		b.deviceDriver.DestroyImageView(b.depthView, nil)
		b.depthView = core1_0.ImageView{}
	}
	if b.depthImage.Initialized() {
		b.deviceDriver.DestroyImage(b.depthImage, nil)
		b.depthImage = core1_0.Image{}
	}
	if b.depthMemory.Initialized() {
		b.deviceDriver.FreeMemory(b.depthMemory, nil)
		b.depthMemory = core1_0.DeviceMemory{}
	}
}

func (b *Bootstrap) createBuffer(size int, usage core1_0.BufferUsageFlags, required, preferred core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := b.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "create buffer")
	}

	memReqs := b.deviceDriver.GetBufferMemoryRequirements(buffer)
	memory, err := b.allocate(memReqs.Size, memReqs.MemoryTypeBits, required, preferred)
	if err != nil {
		return buffer, core1_0.DeviceMemory{}, err
	}

	_, err = b.deviceDriver.BindBufferMemory(buffer, memory, 0)
	return buffer, memory, errors.Wrap(err, "bind buffer memory")
}

func (b *Bootstrap) writeData(memory core1_0.DeviceMemory, data []byte) error {
	memoryPtr, _, err := b.deviceDriver.MapMemory(memory, 0, len(data), 0)
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer b.deviceDriver.UnmapMemory(memory)

	copy(unsafe.Slice((*byte)(memoryPtr), len(data)), data)
	return nil
}

// InitVertexBuffer uploads the fixed triangle into device-local memory through a
// host-visible staging buffer. Hosts without a separate device-local heap get a
// vertex buffer in whatever memory matches.
func (b *Bootstrap) InitVertexBuffer(ctx context.Context) error {
	vertices := geometry.Triangle()
	data, err := geometry.Bytes(vertices)
	if err != nil {
		return err
	}

	stagingBuffer, stagingMemory, err := b.createBuffer(len(data), core1_0.BufferUsageTransferSrc,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent, 0)
	if stagingBuffer.Initialized() {
		defer b.deviceDriver.DestroyBuffer(stagingBuffer, nil)
	}
	if stagingMemory.Initialized() {
		defer b.deviceDriver.FreeMemory(stagingMemory, nil)
	}
	if err != nil {
		return errors.Wrap(err, "staging buffer")
	}

	if err := b.writeData(stagingMemory, data); err != nil {
		return err
	}

	b.vertexBuffer, b.vertexBufferMemory, err = b.createBuffer(len(data),
		core1_0.BufferUsageTransferDst|core1_0.BufferUsageVertexBuffer, 0, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return errors.Wrap(err, "vertex buffer")
	}

	if err := b.copyBuffer(ctx, stagingBuffer, b.vertexBuffer, len(data)); err != nil {
		return err
	}

	b.vertexCount = len(vertices)
	b.log.Debug("vertex buffer uploaded",
		"vertices", b.vertexCount,
		"bytes", len(data),
		"stride", geometry.BindingDescriptions()[0].Stride,
		"attributes", len(geometry.AttributeDescriptions()))
	return nil
}
