// Package page renders response pages by mutating a copy of a template HTML
// document.
//
// A Template is parsed once and never modified. Each request takes its own Page
// from Template.NewPage and then either repopulates and annotates the form, or
// replaces the content region (the <main> element by default) with a success,
// failure or custom message.
package page
