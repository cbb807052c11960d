package domain

// Location is a node in the world graph. Connections list the location ids
// an NPC may relocate to in one move.
type Location struct {
	ID          string
	Name        string
	Description string
	Connections []string
}

// ConnectedTo reports whether target is directly reachable from the
// location.
func (l Location) ConnectedTo(target string) bool {
	for _, conn := range l.Connections {
		if conn == target {
			return true
		}
	}
	return false
}
