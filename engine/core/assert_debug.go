//go:build debug

package core

const AssertsPanic = true

func reportAssert(msg string) {
	getLogger().Error("assertion failed", "msg", msg)
	panic("assertion failed: " + msg)
}
