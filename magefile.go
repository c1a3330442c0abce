//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "parlo"

// Default target to run when none is specified
var Default = Build

// Build builds the parlo binary
func Build() error {
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-o", binary, "./cmd/parlo")
}

// Test runs all tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Install installs parlo into GOBIN
func Install() error {
	mg.Deps(Test)
	return sh.RunV("go", "install", "./cmd/parlo")
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning")
	return sh.Rm(binary)
}

// Dev runs vet and tests before building
func Dev() {
	mg.SerialDeps(Vet, Test, Build)
}
