package gralloc

// Usage is a bitmask describing how a buffer will be accessed.
type Usage uint32

// Usage flags. The software read and write fields are 4-bit masks;
// any non-zero value in them means CPU access.
const (
	UsageSWReadRarely  Usage = 0x00000002
	UsageSWReadOften   Usage = 0x00000003
	UsageSWReadMask    Usage = 0x0000000f
	UsageSWWriteRarely Usage = 0x00000020
	UsageSWWriteOften  Usage = 0x00000030
	UsageSWWriteMask   Usage = 0x000000f0

	UsageHWTexture  Usage = 0x00000100
	UsageHWRender   Usage = 0x00000200
	UsageHW2D       Usage = 0x00000400
	UsageHWComposer Usage = 0x00000800
	UsageHWFB       Usage = 0x00001000
)

// Has reports whether all bits of flag are set.
func (u Usage) Has(flag Usage) bool {
	return u&flag == flag
}

// CPURead reports whether the buffer will be read by the CPU.
func (u Usage) CPURead() bool {
	return u&UsageSWReadMask != 0
}

// CPUWrite reports whether the buffer will be written by the CPU.
func (u Usage) CPUWrite() bool {
	return u&UsageSWWriteMask != 0
}

// Scanout reports whether the buffer may be used as a display framebuffer.
func (u Usage) Scanout() bool {
	return u&UsageHWFB != 0
}
