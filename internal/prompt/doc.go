// Package prompt implements the interactive operator dialogue: enumerated
// menus, yes/no questions, free-form answers and echo-less password entry.
package prompt
