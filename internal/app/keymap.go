package app

// Key binding constants used in handleKey.
const (
	KeyQuit          = "q"
	KeyQuitUpper     = "Q"
	KeyCtrlC         = "ctrl+c"
	KeySpace         = " "
	KeyUp            = "up"
	KeyDown          = "down"
	KeyEnter         = "enter"
	KeyEsc           = "esc"
	KeyBackspace     = "backspace"
	KeyCtrlU         = "ctrl+u"
	KeySettings      = "s"
	KeyEcho          = "e"
	KeyNoise         = "n"
	KeyCycleMic      = "m"
	KeyLanguage      = "l"
	KeyAPIKey        = "k"
	KeyClearAPIKey   = "K"
	KeyExportCSV     = "c"
	KeyExportPrint   = "p"
	KeyDismissNotice = "x"
)
