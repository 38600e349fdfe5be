//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests. GPU behavior is covered by the headless backend.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Runs the unit tests with assertions that panic.
func (Test) Debug() error {
	_, err := executeCmd("go", withArgs("test", "-tags", "debug", "./engine/..."), withStream())
	return err
}
