// Copyright 2024 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"bufio"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/kballard/go-shellquote"
)

// Console lines that end a run. The payload reports its own result, the
// loader only reports fatal errors.
const (
	fatalPrefix = "bbl: fatal:"
	passLine    = "PASS"
	failLine    = "FAIL"
)

// runImage runs cmdpath with the image appended to its arguments and
// forwards its console until a result is seen. It returns the exit code.
func runImage(cmdpath, imgpath string, tty bool) int {
	args, err := shellquote.Split(cmdpath)
	if err != nil {
		log.Fatal("run:", err)
	}
	args = append(args, imgpath)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr

	var console io.ReadCloser
	if tty {
		// The pty is a new session, which is a process group as well.
		console, err = pty.Start(cmd)
		if err != nil {
			log.Fatal("start command:", err)
		}
	} else {
		cmd.Stdin = os.Stdin
		processGroupEnable(cmd)
		console, err = cmd.StdoutPipe()
		if err != nil {
			log.Fatal("open stdout:", err)
		}
		err = cmd.Start()
		if err != nil {
			log.Fatal("start command:", err)
		}
	}

	sigintr := make(chan os.Signal, 1)
	signal.Notify(sigintr, os.Interrupt)
	go func() {
		<-sigintr
		console.Close()
		err := processGroupKill(cmd)
		if err != nil {
			log.Println(err)
		}
	}()

	code := scan(console, func() {
		go func() {
			// give the payload time to flush its output
			time.Sleep(500 * time.Millisecond)
			console.Close()
			err := processGroupKill(cmd)
			if err != nil {
				log.Println(err)
			}
		}()
	})
	cmd.Wait()
	return code
}

// scan logs every console line and calls exit once on the first line that
// decides the result.
func scan(r io.Reader, exit func()) int {
	scanner := bufio.NewScanner(r)
	exiting := false
	code := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		log.Println(line)
		if exiting {
			continue
		}
		switch {
		case strings.HasPrefix(line, fatalPrefix), strings.HasPrefix(line, "panic:"):
			fallthrough
		case line == failLine:
			code = 1
			fallthrough
		case line == passLine:
			exiting = true
			exit()
		}
	}
	return code
}
