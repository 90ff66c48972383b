package app

import (
	"fmt"
	"io"
	"sync"
)

// loginPath is the location of the login command as a navigator path.
const loginPath = "/login"

// terminalNavigator stands in for page navigation on a terminal: instead of
// redirecting it tells the user how to log in again. Running the login
// command counts as being on the login surface.
type terminalNavigator struct {
	out io.Writer

	mu      sync.Mutex
	current string
}

func (n *terminalNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *terminalNavigator) Navigate(p string) {
	n.mu.Lock()
	n.current = p
	n.mu.Unlock()

	if p == loginPath {
		fmt.Fprintln(n.out, "session ended, run `sessionctl login <email> <password>` to sign in again")
	}
}

func (n *terminalNavigator) enter(p string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = p
}
