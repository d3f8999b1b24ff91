//go:build headless

package main

import "errors"

func runWindow(_ *App, _ string) error {
	return errors.New("built without window support (headless tag); run with -headless")
}
