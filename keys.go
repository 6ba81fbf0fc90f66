package main

import "github.com/charmbracelet/bubbles/key"

const seekStep = 1.0

// nudgeStep is how far [ ] { } move a trim handle.
const nudgeStep = 0.5

type keyMap struct {
	PlayPause      key.Binding
	Back           key.Binding
	Forward        key.Binding
	StartEarlier   key.Binding
	StartLater     key.Binding
	EndEarlier     key.Binding
	EndLater       key.Binding
	Bookmark       key.Binding
	Jump           key.Binding
	NextBookmark   key.Binding
	DeleteBookmark key.Binding
	Apply          key.Binding
	Reset          key.Binding
	Insights       key.Binding
	Help           key.Binding
	Quit           key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		PlayPause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		Back: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "back 1s"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "forward 1s"),
		),
		StartEarlier: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "start earlier"),
		),
		StartLater: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "start later"),
		),
		EndEarlier: key.NewBinding(
			key.WithKeys("{"),
			key.WithHelp("{", "end earlier"),
		),
		EndLater: key.NewBinding(
			key.WithKeys("}"),
			key.WithHelp("}", "end later"),
		),
		Bookmark: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bookmark"),
		),
		Jump: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "jump to bookmark"),
		),
		NextBookmark: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next bookmark"),
		),
		DeleteBookmark: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete bookmark"),
		),
		Apply: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "apply trim"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset trim"),
		),
		Insights: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "insights"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Back, k.Forward, k.Apply, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Back, k.Forward},
		{k.StartEarlier, k.StartLater, k.EndEarlier, k.EndLater},
		{k.Apply, k.Reset, k.Insights},
		{k.Bookmark, k.Jump, k.NextBookmark, k.DeleteBookmark},
		{k.Help, k.Quit},
	}
}
