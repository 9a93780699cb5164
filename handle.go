package gralloc

import "fmt"

// TokenKind identifies how a ShareToken refers to a kernel buffer.
type TokenKind uint8

const (
	// TokenNone means the handle carries no sharing token.
	TokenNone TokenKind = iota
	// TokenName is a 32-bit global (flink) name.
	TokenName
	// TokenFD is a file descriptor (dma-buf).
	TokenFD
)

// String returns the kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenNone:
		return "none"
	case TokenName:
		return "name"
	case TokenFD:
		return "fd"
	}
	return fmt.Sprintf("TokenKind(%d)", uint8(k))
}

// ShareToken lets another process find the same kernel buffer.
// The zero value carries nothing.
type ShareToken struct {
	Kind  TokenKind
	Value int
}

// NameToken returns a token for a global buffer name.
func NameToken(name uint32) ShareToken {
	return ShareToken{Kind: TokenName, Value: int(name)}
}

// FDToken returns a token for a buffer file descriptor.
func FDToken(fd int) ShareToken {
	return ShareToken{Kind: TokenFD, Value: fd}
}

// IsZero reports whether the token refers to nothing. A name of 0 and a
// negative file descriptor are both treated as absent.
func (t ShareToken) IsZero() bool {
	switch t.Kind {
	case TokenName:
		return t.Value == 0
	case TokenFD:
		return t.Value < 0
	}
	return true
}

// Name returns the global name if the token is a name.
func (t ShareToken) Name() (uint32, bool) {
	if t.Kind != TokenName || t.IsZero() {
		return 0, false
	}
	return uint32(t.Value), true
}

// FD returns the file descriptor if the token is one.
func (t ShareToken) FD() (int, bool) {
	if t.Kind != TokenFD || t.IsZero() {
		return -1, false
	}
	return t.Value, true
}

// String formats the token for logs.
func (t ShareToken) String() string {
	if t.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s:%d", t.Kind, t.Value)
}

// BufferHandle is the cross-process description of a buffer.
//
// The front end fills Width, Height, Format and Usage before calling
// Driver.Alloc. Alloc writes Stride, and for newly created buffers the
// Token and FBHandle. If Token is set on input, Alloc imports the
// existing buffer instead of creating one; Stride must then hold the
// exporter's row pitch.
type BufferHandle struct {
	Width  int
	Height int
	Format Format
	Usage  Usage

	// Stride is the row pitch in bytes.
	Stride int

	Token ShareToken

	// FBHandle is the kernel handle used to attach the buffer to a
	// framebuffer; zero when the buffer is not scanout capable.
	FBHandle uint32
}

// MaxDimension is the largest width or height a buffer may have. It
// keeps aligned sizes and row pitches within the kernel's 32-bit fields.
const MaxDimension = 1 << 24

// Validate checks the caller-supplied part of the handle.
func (h *BufferHandle) Validate() error {
	if h == nil {
		return fmt.Errorf("%w: nil handle", ErrInvalidHandle)
	}
	if h.Width <= 0 || h.Height <= 0 || h.Width > MaxDimension || h.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidHandle, h.Width, h.Height)
	}
	return nil
}

// Buffer is a backend buffer object as seen through the Driver interface.
type Buffer interface {
	// Handle returns the handle the buffer was allocated for.
	Handle() *BufferHandle
}
