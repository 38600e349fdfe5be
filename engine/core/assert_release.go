//go:build !debug

package core

const AssertsPanic = false

func reportAssert(msg string) {
	getLogger().Error("assertion failed", "msg", msg)
}
