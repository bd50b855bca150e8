// Package topic formats the destinations a screen subscribes to.
package topic

import "fmt"

// Connect is where a waiting screen learns which project it was assigned.
func Connect(screenCode int) string {
	return fmt.Sprintf("/user/%d/queue/connect", screenCode)
}

// Live carries widget, position and grid updates for every screen showing the project.
func Live(projectToken string) string {
	return fmt.Sprintf("/user/%s/queue/live", projectToken)
}

// Unique addresses one screen showing one project.
func Unique(projectToken string, screenCode int) string {
	return fmt.Sprintf("/user/%s-%d/queue/unique", projectToken, screenCode)
}
