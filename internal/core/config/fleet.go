package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ibrahimkeyboad/govend/internal/core/domain"
)

// FieldError points at the configuration value that failed validation.
type FieldError struct {
	Path  string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	base := e.Field
	if e.Path != "" {
		base = fmt.Sprintf("%s (path=%s)", e.Field, e.Path)
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

type yamlFleet struct {
	Machines []yamlMachine `yaml:"machines"`
}

type yamlMachine struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Stock     int    `yaml:"stock"`
	UnitPrice string `yaml:"unit_price"`
}

// MachineSpec describes one machine to build at startup.
type MachineSpec struct {
	ID        uuid.UUID
	Name      string
	Stock     int
	UnitPrice domain.Money
}

// LoadFleet reads the machine list from a YAML file.
func LoadFleet(path string) ([]MachineSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &FieldError{Path: path, Field: "fleet", Err: err}
	}
	specs, err := ParseFleet(b)
	if err != nil {
		if fe, ok := err.(*FieldError); ok {
			fe.Path = path
		}
		return nil, err
	}
	return specs, nil
}

// ParseFleet validates every machine entry; ids are generated when omitted.
func ParseFleet(data []byte) ([]MachineSpec, error) {
	var dto yamlFleet
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, &FieldError{Field: "fleet", Err: err}
	}
	if len(dto.Machines) == 0 {
		return nil, &FieldError{Field: "machines", Err: fmt.Errorf("%w: at least one machine is required", domain.ErrInvalidInput)}
	}

	specs := make([]MachineSpec, 0, len(dto.Machines))
	seen := make(map[uuid.UUID]bool, len(dto.Machines))
	for i, m := range dto.Machines {
		field := func(name string) string { return fmt.Sprintf("machines[%d].%s", i, name) }

		id := uuid.New()
		if m.ID != "" {
			parsed, err := uuid.Parse(m.ID)
			if err != nil {
				return nil, &FieldError{Field: field("id"), Err: err}
			}
			id = parsed
		}
		if seen[id] {
			return nil, &FieldError{Field: field("id"), Err: fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidInput, id)}
		}
		seen[id] = true

		if m.Stock < 0 {
			return nil, &FieldError{Field: field("stock"), Err: fmt.Errorf("%w: cannot be negative", domain.ErrInvalidInput)}
		}
		price, err := domain.NewMoney(m.UnitPrice)
		if err != nil {
			return nil, &FieldError{Field: field("unit_price"), Err: err}
		}
		if !price.IsPositive() {
			return nil, &FieldError{Field: field("unit_price"), Err: fmt.Errorf("%w: must be positive", domain.ErrInvalidInput)}
		}

		specs = append(specs, MachineSpec{ID: id, Name: m.Name, Stock: m.Stock, UnitPrice: price})
	}
	return specs, nil
}
