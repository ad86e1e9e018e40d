package main

import (
	"fmt"
	"strings"
)

// uiMode is the --ui setting of a directory transpile.
type uiMode uint8

const (
	uiAuto uiMode = iota
	uiOn
	uiOff
)

func (m uiMode) String() string {
	return [...]string{"auto", "on", "off"}[m]
}

func parseUIMode(value string) (uiMode, error) {
	for m := uiAuto; m <= uiOff; m++ {
		if strings.EqualFold(strings.TrimSpace(value), m.String()) {
			return m, nil
		}
	}
	if strings.TrimSpace(value) == "" {
		return uiAuto, nil
	}
	return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// showProgress decides whether the live file list is drawn. In auto mode
// it needs a terminal and pretty diagnostics, and --quiet turns it off.
func showProgress(mode uiMode, quiet bool, format diagFormat, tty bool) bool {
	switch mode {
	case uiOn:
		return true
	case uiOff:
		return false
	}
	return tty && !quiet && format == diagFormatPretty
}
