package cli

import (
	"fmt"
	"strconv"

	"github.com/splitsend/splitsend/internal/engine"
	"github.com/splitsend/splitsend/internal/store"
)

// withEngine opens the database, wires the engine, executes the function,
// and handles cleanup.
func withEngine(fn func(*engine.Engine) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(engine.New(s, nil))
}

func parseTestID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid test id %q", arg)
	}
	return id, nil
}
