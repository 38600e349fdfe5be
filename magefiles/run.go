//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed with anima.toml.
func (Run) Testbed() error {
	fmt.Println("Run testbed...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "anima.toml"), withStream())
	return err
}

// Runs the testbed with the config given in ANIMA_CONFIG.
func (Run) Config() error {
	path := configFromEnv("anima.toml")
	fmt.Printf("Run testbed with %s...\n", path)
	_, err := executeCmd("go", withArgs("run", ".", "-config", path), withStream())
	return err
}
