// Package tray keeps the system tray icon and its menu in step with the
// profile list.
package tray

import (
	"github.com/womp-app/womp/internal/config"
)

// Fixed action ids. Per-profile ids are built with ApplyID, SaveID and
// DeleteID.
const (
	ActionNewProfile      = "new-profile"
	ActionOpenConfig      = "open-config"
	ActionQuit            = "quit"
	ActionTurnOffAll      = "turn-off-all"
	ActionRefreshActive   = "refresh-active"
	ActionNextProfile     = "next-profile"
	ActionPreviousProfile = "previous-profile"

	applyPrefix  = "apply-"
	savePrefix   = "save-"
	deletePrefix = "delete-"
)

// Tooltip is shown when hovering the tray icon.
const Tooltip = "WOMP Configuration"

func ApplyID(profile string) string  { return applyPrefix + profile }
func SaveID(profile string) string   { return savePrefix + profile }
func DeleteID(profile string) string { return deletePrefix + profile }

// Entry is one profile as the menu shows it.
type Entry struct {
	Name  string
	Label string
}

func (e Entry) label() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Name
}

// State is the snapshot a menu is built from.
type State struct {
	Profiles []Entry
	Active   string
	Icon     config.TrayIcon
}

// Item is a menu entry. A separator has no id or label; a submenu has
// children and no id.
type Item struct {
	ID        string
	Label     string
	Separator bool
	Children  []Item
}

func separator() Item { return Item{Separator: true} }

// BuildMenu lays out the menu for s.
func BuildMenu(s State) []Item {
	openConfig := Item{ID: ActionOpenConfig, Label: "Open Config"}
	quit := Item{ID: ActionQuit, Label: "Quit"}

	if len(s.Profiles) == 0 {
		return []Item{openConfig, separator(), quit}
	}

	items := make([]Item, 0, len(s.Profiles)+16)
	for _, p := range s.Profiles {
		label := p.label()
		if p.Name == s.Active {
			label += " (Active)"
		}
		items = append(items, Item{ID: ApplyID(p.Name), Label: label})
	}
	items = append(items, separator())

	if len(s.Profiles) > 1 {
		items = append(items,
			Item{ID: ActionNextProfile, Label: "Next Profile"},
			Item{ID: ActionPreviousProfile, Label: "Previous Profile"},
			separator(),
		)
	}

	save := []Item{{ID: ActionNewProfile, Label: "New Profile..."}, separator()}
	del := make([]Item, 0, len(s.Profiles))
	for _, p := range s.Profiles {
		save = append(save, Item{ID: SaveID(p.Name), Label: p.label()})
		del = append(del, Item{ID: DeleteID(p.Name), Label: p.label()})
	}

	items = append(items,
		Item{Label: "Save Current Profile", Children: save},
		Item{Label: "Delete Profile", Children: del},
		separator(),
		Item{ID: ActionTurnOffAll, Label: "Turn Off All Displays"},
		separator(),
		Item{ID: ActionRefreshActive, Label: "Refresh Active"},
		openConfig,
		separator(),
		quit,
	)
	return items
}
