// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides the client's route surface:
//  1. [LoginView] / [SignupView] : public credential entry
//  2. [UploadView] : protected; file picking and the staged upload pipeline
//  3. [HistoryView] : protected; the paginated job table with manual refresh
//
// Protected views are gated by the session guard's access predicate: routing
// to one without a valid session lands on [LoginView] instead, and an
// authorization rejection during any fetch expels the user there reactively.
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Network work runs inside tea.Cmd closures; the pipeline and pager own
// their state behind mutexes, so the view layer only ever reads snapshots.
package ui
