package tray

import "strings"

// Dialog kinds shown in the dialog window.
const (
	DialogNewProfile = "new-profile"
	dialogSave       = "save-profile-"
	dialogDelete     = "delete-profile-"
)

// SaveDialog and DeleteDialog name the confirmation dialogs for a profile.
func SaveDialog(profile string) string   { return dialogSave + profile }
func DeleteDialog(profile string) string { return dialogDelete + profile }

// Handler carries out tray actions.
type Handler interface {
	ApplyProfile(name string)
	ShowDialog(kind string)
	TurnOffAllDisplays()
	NextProfile()
	PreviousProfile()
	RefreshActive()
	OpenConfig()
	Quit()
}

// Dispatch routes a clicked item id to h. It reports false for ids it does
// not know.
func Dispatch(h Handler, id string) bool {
	switch id {
	case ActionNewProfile:
		h.ShowDialog(DialogNewProfile)
	case ActionOpenConfig:
		h.OpenConfig()
	case ActionQuit:
		h.Quit()
	case ActionTurnOffAll:
		h.TurnOffAllDisplays()
	case ActionRefreshActive:
		h.RefreshActive()
	case ActionNextProfile:
		h.NextProfile()
	case ActionPreviousProfile:
		h.PreviousProfile()
	default:
		switch {
		case strings.HasPrefix(id, applyPrefix) && len(id) > len(applyPrefix):
			h.ApplyProfile(strings.TrimPrefix(id, applyPrefix))
		case strings.HasPrefix(id, savePrefix) && len(id) > len(savePrefix):
			h.ShowDialog(SaveDialog(strings.TrimPrefix(id, savePrefix)))
		case strings.HasPrefix(id, deletePrefix) && len(id) > len(deletePrefix):
			h.ShowDialog(DeleteDialog(strings.TrimPrefix(id, deletePrefix)))
		default:
			return false
		}
	}
	return true
}
