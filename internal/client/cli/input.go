package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// prompter asks questions on out (stderr in practice, so stdout stays
// machine-readable) and reads answers from in or, for secrets, from the
// terminal behind fd.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, fd: int(os.Stdin.Fd())}
}

// Line reads one trimmed line. A final line without a newline is accepted.
func (p *prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt+": ")
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Secret reads without echo. The caller wipes the result.
func (p *prompter) Secret(prompt string) ([]byte, error) {
	fmt.Fprint(p.out, prompt+": ")
	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}
