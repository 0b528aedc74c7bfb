// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package recording records network calls made through a pipeline and
plays them back, so that tests can run without a live service.

In record mode, put a RecordPolicy at the end of the pipeline and save
the RecordedData when done:

	data := &recording.RecordedData{}
	client := &httpipe.Client{
		PerRetry: []httpipe.Policy{&recording.RecordPolicy{Data: data}},
	}
	...
	err := data.SaveFile("testdata/recordings/TestUpload.yaml")

In playback mode, load the recording and use a Playback transport:

	data, err := recording.LoadFile("testdata/recordings/TestUpload.yaml")
	...
	client := &httpipe.Client{
		Transport: &recording.Playback{Data: data},
	}

Recordings never hold secrets: the sig query parameter and the
x-ms-encryption-key-sha256 response header are redacted, the account
label is stripped from the host, and only an allow-list of request
headers is kept.
*/
package recording
