package terminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/talgya/evolving-kingdom/internal/engine"
)

// readLine waits for the next input line. End of input and a cancelled
// context both yield engine.ErrInterrupted. A single reader goroutine owns
// the input so a pending read never races a later one.
func (u *UI) readLine(ctx context.Context) (string, error) {
	if u.inErr != nil {
		return "", engine.ErrInterrupted
	}

	u.startReader.Do(func() {
		u.lines = make(chan line)
		go func() {
			for {
				text, err := u.in.ReadString('\n')
				u.lines <- line{text: text, err: err}
				if err != nil {
					return
				}
			}
		}()
	})

	select {
	case <-ctx.Done():
		return "", engine.ErrInterrupted
	case l := <-u.lines:
		if l.err != nil {
			u.inErr = l.err
			if l.text == "" {
				return "", engine.ErrInterrupted
			}
		}
		return strings.TrimRight(l.text, "\r\n"), nil
	}
}

func (u *UI) prompt(ctx context.Context, text string) (string, error) {
	fmt.Fprint(u.out, text)
	return u.readLine(ctx)
}

// AskName reads the monarch's name, defaulting when blank.
func (u *UI) AskName(ctx context.Context) (string, error) {
	name, err := u.prompt(ctx, "Enter your name, Your Majesty: ")
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = engine.DefaultPlayerName
	}
	return name, nil
}

// Confirm asks a y/n question. Anything but y or yes is a no.
func (u *UI) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := u.prompt(ctx, "\n"+question+" (y/n): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Choose reads a menu choice 1..n until a valid one arrives.
func (u *UI) Choose(ctx context.Context, n int) (int, error) {
	for {
		answer, err := u.prompt(ctx, fmt.Sprintf("\nEnter your choice (1-%d): ", n))
		if err != nil {
			return 0, err
		}

		choice, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil {
			fmt.Fprintln(u.out, u.st.fail.Render("Please enter a number."))
			continue
		}
		if choice < 1 || choice > n {
			fmt.Fprintln(u.out, u.st.fail.Render("Invalid choice. Try again."))
			continue
		}
		return choice - 1, nil
	}
}

// Pause waits for Enter.
func (u *UI) Pause(ctx context.Context, text string) error {
	_, err := u.prompt(ctx, "\n"+text)
	return err
}
