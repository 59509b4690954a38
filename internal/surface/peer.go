// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package surface

import (
	"os"
	"sync"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/message"
)

// recorder holds the state shared by the headless peers.
type recorder struct {
	mu        sync.Mutex
	receiver  Receiver
	delivered []message.Message
	visible   bool
	config    map[string]any
	disposed  bool
}

func (r *recorder) Attach(recv Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receiver = recv
}

func (r *recorder) Deliver(msg message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return oops.Code(fault.CodeResource).Errorf("peer is disposed")
	}
	r.delivered = append(r.delivered, msg)
	return nil
}

func (r *recorder) SetVisible(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = v
}

func (r *recorder) Configure(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.config == nil {
		r.config = make(map[string]any)
	}
	r.config[key] = value
}

func (r *recorder) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
}

// Delivered returns the messages handed to the content so far.
func (r *recorder) Delivered() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]message.Message, len(r.delivered))
	copy(out, r.delivered)
	return out
}

// Visible reports the last visibility set on the peer.
func (r *recorder) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

// Config returns the last value configured for key.
func (r *recorder) Config(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.config[key]
	return v, ok
}

// Disposed reports whether the peer has been released.
func (r *recorder) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

// Send posts a message from the content to the script side.
func (r *recorder) Send(name string, data any) error {
	r.mu.Lock()
	recv := r.receiver
	r.mu.Unlock()
	if recv == nil {
		return oops.Code(fault.CodeAddressing).Errorf("peer is not attached to a surface")
	}
	return recv.Receive(name, data)
}

// FilePeer is a headless peer that loads documents from disk on a
// background goroutine and records what it is sent.
type FilePeer struct {
	recorder

	wg       sync.WaitGroup
	docMu    sync.Mutex
	document []byte
}

// NewFilePeer creates a headless file-backed peer.
func NewFilePeer() *FilePeer {
	return &FilePeer{}
}

// Load reads path asynchronously and reports the outcome through done.
func (p *FilePeer) Load(path string, done func(err error)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if path == SimpleDocument {
			p.setDocument(nil)
			done(nil)
			return
		}
		data, err := os.ReadFile(path) //nolint:gosec // path is resolved inside plugin roots
		if err != nil {
			done(oops.With("path", path).Wrap(err))
			return
		}
		p.setDocument(data)
		done(nil)
	}()
}

func (p *FilePeer) setDocument(data []byte) {
	p.docMu.Lock()
	defer p.docMu.Unlock()
	p.document = data
}

// Document returns the last document loaded.
func (p *FilePeer) Document() []byte {
	p.docMu.Lock()
	defer p.docMu.Unlock()
	return p.document
}

// Wait blocks until every load started so far has finished.
func (p *FilePeer) Wait() {
	p.wg.Wait()
}

// MemoryPeer is a peer whose loads complete only when the caller says so.
type MemoryPeer struct {
	recorder

	loadMu sync.Mutex
	loads  []pendingLoad
}

type pendingLoad struct {
	path string
	done func(error)
}

// NewMemoryPeer creates a manually driven peer.
func NewMemoryPeer() *MemoryPeer {
	return &MemoryPeer{}
}

// Load records the request; call Complete to finish it.
func (p *MemoryPeer) Load(path string, done func(err error)) {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()
	p.loads = append(p.loads, pendingLoad{path: path, done: done})
}

// Loads returns the paths requested so far, in order.
func (p *MemoryPeer) Loads() []string {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()
	out := make([]string, len(p.loads))
	for i, l := range p.loads {
		out[i] = l.path
	}
	return out
}

// Complete finishes the i-th load request with err.
func (p *MemoryPeer) Complete(i int, err error) {
	p.loadMu.Lock()
	l := p.loads[i]
	p.loadMu.Unlock()
	l.done(err)
}
