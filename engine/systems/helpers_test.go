package systems_test

import (
	"os"
	"testing"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/headless"
	"github.com/spaghettifunk/anima/engine/test"
)

func TestMain(m *testing.M) {
	core.EventSystemInitialize()
	code := m.Run()
	core.EventSystemShutdown()
	os.Exit(code)
}

func newBackend(t *testing.T) *headless.Backend {
	t.Helper()
	b := headless.New()
	test.DemandSuccess(t, b.Initialize("systems-test", 16, 16))
	return b
}
