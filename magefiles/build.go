//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the testbed binary into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/anima-buffers", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Validates the testbed shaders with glslangValidator.
func (Build) Shaders() error {
	for _, shader := range []string{"testbed/shaders/sprite.vert", "testbed/shaders/sprite.frag"} {
		if _, err := executeCmd("glslangValidator", withArgs(shader)); err != nil {
			return err
		}
	}
	return nil
}

// Runs the unit tests of every package.
func Test() error {
	if _, err := executeCmd("go", withArgs("test", "-count=1", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
