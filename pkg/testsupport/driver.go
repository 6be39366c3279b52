package testsupport

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-formbind/pkg/renderers/tui"
)

// ErrUnscripted is returned when a prompt runs past its script.
var ErrUnscripted = errors.New("testsupport: prompt not scripted")

// ScriptedDriver answers terminal prompts from fixed queues. Passwords and
// text areas draw from Inputs. Info messages are recorded.
type ScriptedDriver struct {
	mu       sync.Mutex
	Inputs   []string
	Selects  []int
	Confirms []bool
	Infos    []string
}

var _ tui.PromptDriver = (*ScriptedDriver)(nil)

func (d *ScriptedDriver) Input(context.Context, tui.InputConfig) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Inputs) == 0 {
		return "", ErrUnscripted
	}
	v := d.Inputs[0]
	d.Inputs = d.Inputs[1:]
	return v, nil
}

func (d *ScriptedDriver) Password(ctx context.Context, cfg tui.InputConfig) (string, error) {
	return d.Input(ctx, cfg)
}

func (d *ScriptedDriver) TextArea(ctx context.Context, cfg tui.TextAreaConfig) (string, error) {
	return d.Input(ctx, tui.InputConfig{Message: cfg.Message})
}

func (d *ScriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Confirms) == 0 {
		return false, ErrUnscripted
	}
	v := d.Confirms[0]
	d.Confirms = d.Confirms[1:]
	return v, nil
}

func (d *ScriptedDriver) Select(context.Context, tui.SelectConfig) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Selects) == 0 {
		return -1, ErrUnscripted
	}
	v := d.Selects[0]
	d.Selects = d.Selects[1:]
	return v, nil
}

// MultiSelect consumes a single scripted select and returns it as the only
// choice.
func (d *ScriptedDriver) MultiSelect(ctx context.Context, cfg tui.SelectConfig) ([]int, error) {
	idx, err := d.Select(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return []int{idx}, nil
}

func (d *ScriptedDriver) Info(_ context.Context, msg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Infos = append(d.Infos, msg)
	return nil
}
