// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

//go:build integration

package plugin_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/instance"
	"github.com/marquee-player/marquee/internal/message"
	"github.com/marquee-player/marquee/internal/player"
	"github.com/marquee-player/marquee/internal/plugin"
	"github.com/marquee-player/marquee/internal/plugin/capability"
	pluginlua "github.com/marquee-player/marquee/internal/plugin/lua"
	"github.com/marquee-player/marquee/internal/surface"
)

// peerSet keeps the file peers handed out to plugin surfaces.
type peerSet struct {
	mu    sync.Mutex
	peers map[instance.ID]map[surface.Kind]*surface.FilePeer
}

func (s *peerSet) factory(id instance.ID, kind surface.Kind) surface.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peers[id] == nil {
		s.peers[id] = make(map[surface.Kind]*surface.FilePeer)
	}
	p := surface.NewFilePeer()
	s.peers[id][kind] = p
	return p
}

func (s *peerSet) get(id instance.ID, kind surface.Kind) *surface.FilePeer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[id][kind]
}

func names(msgs []message.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Name)
	}
	return out
}

var _ = Describe("Bundled plugins", func() {
	var (
		ctx      context.Context
		core     *player.Headless
		reporter *fault.Recorder
		peers    *peerSet
		host     *pluginlua.Host
		manager  *plugin.Manager
		dataDir  string
	)

	BeforeEach(func() {
		ctx = context.Background()
		core = player.NewHeadless()
		reporter = &fault.Recorder{}
		peers = &peerSet{peers: make(map[instance.ID]map[surface.Kind]*surface.FilePeer)}
		dataDir = GinkgoT().TempDir()

		host = pluginlua.NewHost(capability.NewEnforcer(),
			pluginlua.WithCore(core),
			pluginlua.WithReporter(reporter),
			pluginlua.WithDataDir(dataDir),
			pluginlua.WithPeerFactory(peers.factory),
		)
		manager = plugin.NewManager(filepath.Join("..", "..", "plugins"), plugin.WithHost(host))
		Expect(manager.LoadAll(ctx)).To(Succeed())
	})

	AfterEach(func() {
		Expect(manager.Close(ctx)).To(Succeed())
	})

	Describe("now-playing", func() {
		overlay := func() *surface.FilePeer {
			var p *surface.FilePeer
			Eventually(func() *surface.FilePeer {
				p = peers.get(0, surface.KindOverlay)
				return p
			}).WithTimeout(2 * time.Second).ShouldNot(BeNil())
			return p
		}
		historyFile := func() string {
			return filepath.Join(dataDir, "plugins", "now-playing", "history.txt")
		}

		It("loads without reporting faults", func() {
			Expect(manager.ListPlugins()).To(ContainElement("now-playing"))
			Expect(host.Plugins()).To(ContainElement("now-playing"))

			overlay().Wait()
			Expect(string(overlay().Document())).To(ContainSubstring(`id="banner"`))
			Expect(reporter.Reports()).To(BeEmpty())
		})

		It("records history and updates the overlay when a file loads", func() {
			Expect(core.Open(ctx, 0, "/media/first.mkv")).To(Succeed())
			Expect(core.Open(ctx, 0, "/media/second.mkv")).To(Succeed())

			Eventually(func() (string, error) {
				data, err := os.ReadFile(historyFile())
				return string(data), err
			}).WithTimeout(2 * time.Second).Should(Equal("/media/first.mkv\n/media/second.mkv"))

			Eventually(func() []string {
				return names(overlay().Delivered())
			}).WithTimeout(2 * time.Second).Should(Equal([]string{"now-playing", "now-playing"}))
			Expect(overlay().Visible()).To(BeTrue())
		})

		It("clears history on request from the overlay", func() {
			Expect(core.Open(ctx, 0, "/media/first.mkv")).To(Succeed())
			Eventually(historyFile).WithTimeout(2 * time.Second).Should(BeAnExistingFile())

			Expect(overlay().Send("clear", nil)).To(Succeed())
			Eventually(historyFile).WithTimeout(2 * time.Second).ShouldNot(BeAnExistingFile())
		})

		It("toggles the overlay preference from its menu", func() {
			r, ok := host.Router("now-playing")
			Expect(ok).To(BeTrue())
			inst, ok := r.Get(0)
			Expect(ok).To(BeTrue())
			Expect(inst.Loop().Sync(ctx)).To(Succeed())

			b, ok := host.Menu("now-playing", 0)
			Expect(ok).To(BeTrue())
			item, ok := b.Find("Now Playing", "Show Overlay")
			Expect(ok).To(BeTrue())
			Expect(item.Selected).To(BeTrue())
			Expect(b.Bindings()).To(HaveKey("Shift+Meta+o"))

			Expect(b.Trigger("Now Playing", "Show Overlay")).To(Succeed())

			prefsFile := filepath.Join(dataDir, "prefs", "now-playing.yaml")
			Eventually(func() (string, error) {
				data, err := os.ReadFile(prefsFile)
				return string(data), err
			}).WithTimeout(2 * time.Second).Should(ContainSubstring("show-overlay: false"))

			Expect(inst.Loop().Sync(ctx)).To(Succeed())
			Expect(item.Selected).To(BeFalse())
		})

		It("gives a new player window its own runtime", func() {
			r, ok := host.Router("now-playing")
			Expect(ok).To(BeTrue())
			id, err := r.Create(ctx, instance.Options{Label: "second", EnablePlugins: true})
			Expect(err).NotTo(HaveOccurred())

			_, ok = host.Menu("now-playing", id)
			Expect(ok).To(BeTrue())
			Expect(core.Players()).To(ContainElement(id))
		})
	})
})
