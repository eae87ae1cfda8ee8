package lai

import (
	"fmt"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

type QueueFamily struct {
	Index                   int
	VKQueueFamilyProperties vk.QueueFamilyProperties
}

func (q *QueueFamily) has(bit vk.QueueFlagBits) bool {
	return q.VKQueueFamilyProperties.QueueFlags&vk.QueueFlags(bit) == vk.QueueFlags(bit)
}

func (q *QueueFamily) IsGraphics() bool {
	return q.has(vk.QueueGraphicsBit)
}

func (q *QueueFamily) IsCompute() bool {
	return q.has(vk.QueueComputeBit)
}

func (q *QueueFamily) IsTransfer() bool {
	return q.has(vk.QueueTransferBit)
}

// TransferScore counts the other capabilities a transfer family also
// advertises. Lower scores are preferred for the transfer queue.
func (q *QueueFamily) TransferScore() int {
	score := 0
	if q.IsGraphics() {
		score++
	}
	if q.IsCompute() {
		score++
	}
	return score
}

func (q *QueueFamily) String() string {
	return fmt.Sprintf("{ Index: %d Compute: %v Graphics: %v Transfer: %v }", q.Index, q.IsCompute(), q.IsGraphics(), q.IsTransfer())
}

// NoQueueFamily marks a queue role no family could fill.
const NoQueueFamily = -1

// QueueFamilyInfo holds the family index chosen for each queue role.
type QueueFamilyInfo struct {
	Graphics int
	Present  int
	Compute  int
	Transfer int
}

// FindQueueFamilies walks the families of pd once. Graphics, compute and
// present take the first family that supports them; transfer takes the
// transfer family with the lowest TransferScore, the later family winning a
// tie.
func FindQueueFamilies(driver Driver, pd vk.PhysicalDevice, surface vk.Surface) (QueueFamilyInfo, error) {
	info := QueueFamilyInfo{
		Graphics: NoQueueFamily,
		Present:  NoQueueFamily,
		Compute:  NoQueueFamily,
		Transfer: NoQueueFamily,
	}

	minTransferScore := int(^uint8(0))
	for i, props := range driver.GetPhysicalDeviceQueueFamilyProperties(pd) {
		qf := &QueueFamily{Index: i, VKQueueFamilyProperties: props}

		if qf.IsGraphics() && info.Graphics == NoQueueFamily {
			info.Graphics = i
		}
		if qf.IsCompute() && info.Compute == NoQueueFamily {
			info.Compute = i
		}
		if qf.IsTransfer() {
			if score := qf.TransferScore(); score <= minTransferScore {
				minTransferScore = score
				info.Transfer = i
			}
		}

		supported, res := driver.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surface)
		if res != vk.Success {
			return info, resultError("querying surface support", res)
		}
		if supported && info.Present == NoQueueFamily {
			info.Present = i
		}

		slog.Debug("queue family", "family", qf, "present", supported)
	}
	return info, nil
}

// Unique returns the distinct family indices among graphics, present and
// transfer, graphics first.
func (q QueueFamilyInfo) Unique() []int {
	out := []int{q.Graphics}
	for _, idx := range []int{q.Present, q.Transfer} {
		if idx == NoQueueFamily {
			continue
		}
		seen := false
		for _, o := range out {
			if o == idx {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, idx)
		}
	}
	return out
}
