package viewer

// KeyCode identifies a non-printable key.
type KeyCode int

const (
	// KeyRune is a printable character carried in Key.Rune.
	KeyRune KeyCode = iota
	KeyEscape
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyEnter
	KeyUnknown
)

// Key is one key press.
type Key struct {
	Code KeyCode
	Rune rune
	Ctrl bool
	Meta bool
}

// RuneKey returns the key press for a printable character.
func RuneKey(r rune) Key {
	return Key{Code: KeyRune, Rune: r}
}

// Action is what a key press did.
type Action int

const (
	ActionNone Action = iota
	ActionClose
	ActionPrev
	ActionNext
	ActionToggleInfo
	ActionZoomIn
	ActionZoomOut
	ActionRotateRight
	ActionRotateLeft
)

var actionNames = map[Action]string{
	ActionNone:        "none",
	ActionClose:       "close",
	ActionPrev:        "prev",
	ActionNext:        "next",
	ActionToggleInfo:  "info",
	ActionZoomIn:      "zoom_in",
	ActionZoomOut:     "zoom_out",
	ActionRotateRight: "rotate_right",
	ActionRotateLeft:  "rotate_left",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// ActionFor maps a key press to an action. Keys with Ctrl or Meta held are
// left to the host.
func ActionFor(k Key) Action {
	if k.Ctrl || k.Meta {
		return ActionNone
	}

	switch k.Code {
	case KeyEscape:
		return ActionClose
	case KeyLeft:
		return ActionPrev
	case KeyRight:
		return ActionNext
	case KeyRune:
	default:
		return ActionNone
	}

	switch k.Rune {
	case 'i', 'I':
		return ActionToggleInfo
	case '+', '=':
		return ActionZoomIn
	case '-', '_':
		return ActionZoomOut
	case 'r', 'R':
		return ActionRotateRight
	case 'l', 'L':
		return ActionRotateLeft
	}
	return ActionNone
}
