// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gogama/httpipe/internal/logger"
	"github.com/gogama/httpipe/request"
)

var (
	// errBadHeader indicates a --header value without a colon.
	errBadHeader = errors.New("header must have the form 'Name: value'")
	// errDataConflict indicates both --data and --data-file.
	errDataConflict = errors.New("--data and --data-file are mutually exclusive")
	// errHTTPStatus is returned with --fail for a status of 400 or more.
	errHTTPStatus = errors.New("server returned an error status")
)

type sendFlags struct {
	method   string
	headers  []string
	data     string
	dataFile string
	output   string
	include  bool
	fail     bool
	quiet    bool
}

func newSendCmd(a *app) *cobra.Command {
	var f sendFlags

	cmd := &cobra.Command{
		Use:   "send [flags] URL",
		Short: "Send one request and print the response.",
		Long: `Send one request through the configured pipeline and print the
response body to standard output.

With --output the body is streamed to a file, with a progress bar on
standard error unless --quiet is given or the log level is above info.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cmd.Flags()); err != nil {
				return err
			}

			return a.send(cmd, args[0], &f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.method, "method", "X", "GET", "request method")
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "request header 'Name: value', may be repeated")
	flags.StringVarP(&f.data, "data", "d", "", "request body")
	flags.StringVar(&f.dataFile, "data-file", "", "file streamed as the request body")
	flags.StringVarP(&f.output, "output", "o", "", "stream the response body to this file")
	flags.BoolVarP(&f.include, "include", "i", false, "print the status line and headers")
	flags.BoolVarP(&f.fail, "fail", "f", false, "exit with an error on a status of 400 or more")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "disable the progress bar")

	return cmd
}

func (a *app) send(cmd *cobra.Command, url string, f *sendFlags) error {
	ctx := cmd.Context()

	stack, err := a.opts.Build()
	if err != nil {
		return err
	}

	req, closeBody, err := newRequest(url, f)
	if err != nil {
		return err
	}
	defer closeBody()

	req.SetDownloadViaStream(f.output != "")

	resp, err := stack.Client.Send(ctx, req)
	if err != nil {
		logger.FromContext(ctx).Error("request failed", zap.String("method", req.Method), zap.Error(err))
		return err
	}
	defer resp.Close()

	out := cmd.OutOrStdout()
	if f.include {
		printHead(out, resp)
	}

	if f.output != "" {
		err = download(cmd.ErrOrStderr(), f.output, resp, f.quiet)
	} else {
		var body []byte
		if body, err = resp.Body(); err == nil {
			_, err = out.Write(body)
		}
	}
	if err != nil {
		return err
	}

	if err = stack.Flush(); err != nil {
		return err
	}

	if f.fail && resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s", errHTTPStatus, resp.Status())
	}

	return nil
}

// newRequest builds the request described by f. The returned function
// releases the request body file, if any.
func newRequest(url string, f *sendFlags) (*request.Request, func(), error) {
	method := strings.ToUpper(f.method)
	closeBody := func() {}

	if f.data != "" && f.dataFile != "" {
		return nil, closeBody, errDataConflict
	}

	var (
		req *request.Request
		err error
	)
	switch {
	case f.dataFile != "":
		var file *os.File
		if file, err = os.Open(f.dataFile); err != nil {
			return nil, closeBody, err
		}
		closeBody = func() { _ = file.Close() }

		var info os.FileInfo
		if info, err = file.Stat(); err == nil {
			req, err = request.NewWithStream(method, url, file, info.Size())
		}
	case f.data != "":
		req, err = request.New(method, url, f.data)
	default:
		req, err = request.New(method, url, nil)
	}

	for i := 0; err == nil && i < len(f.headers); i++ {
		h := f.headers[i]
		colon := strings.IndexByte(h, ':')
		if colon <= 0 {
			err = fmt.Errorf("%w: %q", errBadHeader, h)
			break
		}
		err = req.AddHeader(strings.TrimSpace(h[:colon]), strings.TrimSpace(h[colon+1:]))
	}

	if err != nil {
		closeBody()
		return nil, func() {}, err
	}

	return req, closeBody, nil
}

func printHead(w io.Writer, resp *request.Response) {
	fmt.Fprintf(w, "%s %s\n", resp.Proto(), resp.Status())

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range resp.Header[name] {
			fmt.Fprintf(w, "%s: %s\n", name, value)
		}
	}

	fmt.Fprintln(w)
}

// download writes the response body to the named file.
func download(progress io.Writer, name string, resp *request.Response, quiet bool) error {
	var (
		body   io.Reader
		length int64
	)
	if stream := resp.BodyStream(); stream != nil {
		body, length = stream, stream.Length()
	} else {
		b, err := resp.Body()
		if err != nil {
			return err
		}
		body, length = bytes.NewReader(b), int64(len(b))
	}

	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	var w io.Writer = file
	if !quiet && logger.Level() <= zapcore.InfoLevel {
		bar := progressbar.NewOptions64(
			length,
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
		w = io.MultiWriter(file, bar)
	}

	if _, err = io.Copy(w, body); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to download body: %w", err)
	}

	return file.Close()
}
