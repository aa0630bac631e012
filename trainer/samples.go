// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package trainer

import "github.com/charmbracelet/lipgloss"

var sampleStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	Padding(1, 4, 1, 4).
	Width(60)
