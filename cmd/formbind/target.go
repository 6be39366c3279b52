package main

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formbind/pkg/orchestrator"
)

func parseTarget(mode, id string) (orchestrator.Target, error) {
	target := orchestrator.Target{ID: strings.TrimSpace(id)}
	switch m := orchestrator.Mode(strings.ToLower(strings.TrimSpace(mode))); m {
	case "", orchestrator.ModeAuto:
		target.Mode = orchestrator.ModeAuto
	case orchestrator.ModeCreate, orchestrator.ModeEdit, orchestrator.ModeView:
		target.Mode = m
	default:
		return target, fmt.Errorf("unknown mode %q (auto, create, edit, view)", mode)
	}
	return target, nil
}
