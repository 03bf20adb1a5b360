// Package units lists systemd units over D-Bus, so a presentation layer can
// offer completions for the free-text unit filters.
package units

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
	godbus "github.com/godbus/dbus/v5"
)

// Unit is a loaded systemd unit.
type Unit struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ActiveState string            `json:"active_state"`
	SubState    string            `json:"sub_state"`
	Path        godbus.ObjectPath `json:"path"`
}

// Lister lists units.
type Lister interface {
	// ListUnits returns loaded units whose names match any of patterns
	// (shell globs). No patterns means every unit.
	ListUnits(ctx context.Context, patterns []string) ([]Unit, error)

	// Close releases the connection.
	Close() error
}

// systemdLister implements Lister using go-systemd/dbus.
type systemdLister struct {
	conn *dbus.Conn
}

// ConnectSystem connects to the system manager.
func ConnectSystem(ctx context.Context) (Lister, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to system systemd: %w", err)
	}
	return &systemdLister{conn: conn}, nil
}

// ConnectUser connects to the calling user's manager.
func ConnectUser(ctx context.Context) (Lister, error) {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to user systemd: %w", err)
	}
	return &systemdLister{conn: conn}, nil
}

func (l *systemdLister) ListUnits(ctx context.Context, patterns []string) ([]Unit, error) {
	statuses, err := l.conn.ListUnitsByPatternsContext(ctx, nil, patterns)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	out := make([]Unit, 0, len(statuses))
	for _, s := range statuses {
		if s.LoadState == "not-found" || !s.Path.IsValid() {
			continue
		}
		out = append(out, Unit{
			Name:        s.Name,
			Description: s.Description,
			ActiveState: s.ActiveState,
			SubState:    s.SubState,
			Path:        s.Path,
		})
	}
	Sort(out)
	return out, nil
}

func (l *systemdLister) Close() error {
	l.conn.Close()
	return nil
}

// Sort orders units by name.
func Sort(us []Unit) {
	slices.SortFunc(us, func(a, b Unit) int { return strings.Compare(a.Name, b.Name) })
}

// Names returns the unit names in order.
func Names(us []Unit) []string {
	names := make([]string, len(us))
	for i, u := range us {
		names[i] = u.Name
	}
	return names
}

// Complete returns the names starting with prefix, for shell or widget
// completion of a unit filter.
func Complete(us []Unit, prefix string) []string {
	return slices.DeleteFunc(Names(us), func(name string) bool {
		return !strings.HasPrefix(name, prefix)
	})
}

// CompleteUnit returns the names of loaded units starting with prefix.
func CompleteUnit(ctx context.Context, l Lister, prefix string) ([]string, error) {
	us, err := l.ListUnits(ctx, []string{prefix + "*"})
	if err != nil {
		return nil, err
	}
	return Complete(us, prefix), nil
}
