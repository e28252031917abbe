package bootstrap

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/bootstrap/config"
)

func (b *Bootstrap) InitCommandPool(ctx context.Context) error {
	pool, _, err := b.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: b.queueFamilies.Graphics,
		Flags:            core1_0.CommandPoolCreateResetBuffer,
	})
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}

	b.commandPool = pool
	return nil
}

// BeginSingleTimeCommands allocates a primary command buffer and starts recording
// it for a single submission.
func (b *Bootstrap) BeginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := b.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        b.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "allocate command buffer")
	}

	buffer := buffers[0]
	_, err = b.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		b.deviceDriver.FreeCommandBuffers(buffer)
		return core1_0.CommandBuffer{}, errors.Wrap(err, "begin command buffer")
	}
	return buffer, nil
}

// EndSingleTimeCommands submits buffer to the graphics queue, waits for it to finish
// and frees it. The wait gives up early if ctx is cancelled.
func (b *Bootstrap) EndSingleTimeCommands(ctx context.Context, buffer core1_0.CommandBuffer) error {
	defer b.deviceDriver.FreeCommandBuffers(buffer)

	if _, err := b.deviceDriver.EndCommandBuffer(buffer); err != nil {
		return errors.Wrap(err, "end command buffer")
	}

	fence, _, err := b.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "create fence")
	}
	defer b.deviceDriver.DestroyFence(fence, nil)

	_, err = b.deviceDriver.QueueSubmit(b.graphicsQueue, &fence,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return errors.Wrap(err, "submit one-shot commands")
	}

	for {
		res, err := b.deviceDriver.WaitForFences(true, config.FenceTimeout, fence)
		if err != nil {
			return errors.Wrap(err, "wait for one-shot commands")
		}
		if res != core1_0.VKTimeout {
			return nil
		}

		if err := ctx.Err(); err != nil {
			// The buffer may still be executing; it must not be freed under the GPU.
			if _, waitErr := b.deviceDriver.QueueWaitIdle(b.graphicsQueue); waitErr != nil {
				return errors.CombineErrors(err, waitErr)
			}
			return err
		}
	}
}

// copyBuffer records and runs a whole-buffer copy from src to dst.
func (b *Bootstrap) copyBuffer(ctx context.Context, src, dst core1_0.Buffer, size int) error {
	buffer, err := b.BeginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = b.deviceDriver.CmdCopyBuffer(buffer, src, dst,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	)
	if err != nil {
		b.deviceDriver.FreeCommandBuffers(buffer)
		return errors.Wrap(err, "record buffer copy")
	}

	return b.EndSingleTimeCommands(ctx, buffer)
}
