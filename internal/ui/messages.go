package ui

// BrowserSelectedMsg is sent when the user picks a file in the browser.
type BrowserSelectedMsg struct {
	Path string
}

// BrowserCancelledMsg is sent when the user leaves the browser.
type BrowserCancelledMsg struct{}
