package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/govend/internal/core/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulate_SingleMachineNeverOversells(t *testing.T) {
	res, err := simulate(raceOptions{Stock: 30, Price: "0.50", Balance: "100.00", Workers: 100, Quantity: 1, Machines: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(30), res.Approved)
	assert.Equal(t, 0, res.StockAfter)
	assert.Equal(t, "85.00", res.BalanceAfter.String())
	assert.False(t, res.Overdrawn)
}

func TestSimulate_SingleMachineNeverOverdraws(t *testing.T) {
	res, err := simulate(raceOptions{Stock: 100, Price: "0.50", Balance: "5.00", Workers: 100, Quantity: 1, Machines: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(10), res.Approved)
	assert.Equal(t, "0.00", res.BalanceAfter.String())
}

func TestSimulate_PerUnit(t *testing.T) {
	res, err := simulate(raceOptions{Stock: 10, Price: "0.50", Balance: "100.00", Workers: 5, Quantity: 2, Machines: 1, PerUnit: true})
	require.NoError(t, err)

	assert.Equal(t, int64(5), res.Approved)
	assert.Equal(t, "95.00", res.BalanceAfter.String())
}

func TestSimulate_InvalidInput(t *testing.T) {
	_, err := simulate(raceOptions{Stock: 1, Price: "0", Balance: "1", Workers: 1, Quantity: 1, Machines: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = simulate(raceOptions{Stock: 1, Price: "1", Balance: "1", Workers: 0, Quantity: 1, Machines: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = simulate(raceOptions{Stock: 1, Price: "x", Balance: "1", Workers: 1, Quantity: 1, Machines: 1})
	assert.Error(t, err)
}

func TestRaceCmd_JSON(t *testing.T) {
	out, err := run(t, "race", "--stock", "5", "--workers", "20", "--format", "json")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, float64(5), res["approved"])
	assert.Equal(t, float64(0), res["stock_after"])
	assert.Equal(t, "2.50", res["balance_after"])
}

func TestRaceCmd_Pretty(t *testing.T) {
	out, err := run(t, "race", "--stock", "3", "--workers", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "stock:     3 -> 0")
}

func TestRaceCmd_UnknownFormat(t *testing.T) {
	_, err := run(t, "race", "--format", "xml")
	assert.Error(t, err)
}

func TestFleetCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("machines:\n  - name: lobby\n    stock: 25\n    unit_price: \"0.50\"\n"), 0o600))

	out, err := run(t, "fleet", "--file", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "lobby")
	assert.Contains(t, lines[1], "0.50")
}

func TestFleetCmd_Missing(t *testing.T) {
	_, err := run(t, "fleet", "--file", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
