package main

import (
	"bufio"
	"io"
	"log"
	"strings"
)

// readLines sends each line read from r, without its line ending, on the
// returned channel. The channel is closed at the end of input.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string, 1)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(r)
		s.Buffer(nil, 1<<20)
		for s.Scan() {
			lines <- strings.TrimSuffix(s.Text(), "\r")
		}
		if err := s.Err(); err != nil {
			log.Printf("reading input: %v", err)
		}
	}()
	return lines
}
