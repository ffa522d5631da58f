// Package ui implements the interactive now-playing terminal interface
// using bubbletea's Elm architecture.
//
// The view renders the current track, a progress bar fed by the playback
// session's reconciled position, the queue, and contextual help. Transport
// keys (play/pause, next/previous, shuffle, repeat, seek, volume) dispatch
// asynchronous commands against the session; results come back as messages
// so the render loop never blocks on the network.
//
// Keyboard navigation uses vim-style bindings with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
