package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// confirm prints question and reads one answer from in. An empty line, "y"
// or "yes" accept. End of input declines, so a closed or redirected stdin
// never installs without --yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		fmt.Fprintln(out)
		return false
	}
	switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
	case "", "y", "yes":
		return true
	}
	return false
}
