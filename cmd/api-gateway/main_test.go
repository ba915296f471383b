package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-enrollment-api/internal/service"
	"github.com/noah-isme/sims-enrollment-api/pkg/config"
	"github.com/noah-isme/sims-enrollment-api/pkg/database"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "catalog", "token"}, names)
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, service.BuildCatalog(config.AcademicConfig{CurrentSemester: "HK1", CurrentAcademicYear: "2024-2025"})))

	out := buf.String()
	assert.Contains(t, out, "Monday")
	assert.Contains(t, out, "Sunday")
	assert.Contains(t, out, "07:00")
	assert.Contains(t, out, "Afternoon")
	assert.True(t, strings.Contains(out, "HK1 2024-2025"))
}

func TestPrintMigrationStatus(t *testing.T) {
	var buf bytes.Buffer
	printMigrationStatus(&buf, []database.MigrationState{
		{Version: "0001_enrollment_core", Applied: true, AppliedAt: time.Date(2024, 8, 1, 9, 30, 0, 0, time.UTC)},
		{Version: "0002_section_exclusion"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "applied 2024-08-01 09:30:00")
	assert.Contains(t, lines[1], "0002_section_exclusion")
	assert.Contains(t, lines[1], "pending")
}

func TestMigrateRejectsConflictingFlags(t *testing.T) {
	cmd := newMigrateCommand()
	cmd.SetArgs([]string{"--status", "--down"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}
