package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/thesyncim/libgodatachannel/internal/signaling"
	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
)

var errPeerLeft = errors.New("remote peer left the room")

// peer is one side of a dcpeer session.
type peer struct {
	log    *zap.Logger
	offer  bool
	label  string
	echo   bool
	config *datachannel.Configuration
	stdin  io.Reader
	stdout io.Writer

	client *signaling.Client
	pc     *datachannel.PeerConnection

	outMu    sync.Mutex
	pumpOnce sync.Once
	channel  *datachannel.DataChannel

	// Candidates that arrived before the remote description.
	pending []datachannel.Candidate
}

func (p *peer) run(ctx context.Context, url string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	client, err := signaling.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()
	p.client = client

	pc, err := datachannel.NewPeerConnection(p.config)
	if err != nil {
		return err
	}
	defer pc.Close()
	p.pc = pc

	pc.OnLocalDescription(func(d datachannel.Description) {
		typ := signaling.TypeOffer
		if d.Type == datachannel.DescriptionTypeAnswer {
			typ = signaling.TypeAnswer
		}
		p.send(ctx, &signaling.Message{Type: typ, SDP: d.SDP})
	})
	pc.OnLocalCandidate(func(c datachannel.Candidate) {
		p.send(ctx, &signaling.Message{Type: signaling.TypeCandidate, Candidate: c.Candidate, Mid: c.Mid})
	})
	pc.OnStateChange(func(s datachannel.PeerState) {
		p.log.Info("peer state", zap.Stringer("state", s))
		switch s {
		case datachannel.PeerStateConnected:
			if pair, err := pc.SelectedCandidatePair(); err == nil {
				p.log.Info("selected candidate pair", zap.Stringer("pair", pair))
			}
		case datachannel.PeerStateFailed:
			cancel(errors.New("peer connection failed"))
		}
	})
	pc.OnDataChannel(func(dc *datachannel.DataChannel) {
		p.log.Info("remote data channel", zap.String("label", dc.Label()))
		p.attach(ctx, cancel, dc)
	})

	err = p.signal(ctx)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// signal applies messages from the room until it closes or ctx ends.
func (p *peer) signal(ctx context.Context) error {
	for {
		m, err := p.client.Receive(ctx)
		if err != nil {
			return err
		}
		p.log.Debug("signaling message", zap.Stringer("type", m.Type))

		switch m.Type {
		case signaling.TypePeer:
			if p.offer {
				if err := p.openChannel(ctx); err != nil {
					return err
				}
			}
		case signaling.TypeBye:
			return errPeerLeft
		case signaling.TypeOffer:
			if err := p.pc.SetRemoteDescription(m.SDP, datachannel.DescriptionTypeOffer); err != nil {
				return err
			}
			p.flushCandidates()
			if p.config.DisableAutoNegotiation {
				if err := p.pc.SetLocalDescription(datachannel.DescriptionTypeAnswer); err != nil {
					return err
				}
			}
		case signaling.TypeAnswer:
			if err := p.pc.SetRemoteDescription(m.SDP, datachannel.DescriptionTypeAnswer); err != nil {
				return err
			}
			p.flushCandidates()
		case signaling.TypeCandidate:
			if err := p.addCandidate(datachannel.Candidate{Candidate: m.Candidate, Mid: m.Mid}); err != nil {
				return err
			}
		}
	}
}

// addCandidate applies c, or holds it until the remote description is set.
func (p *peer) addCandidate(c datachannel.Candidate) error {
	remote, err := p.pc.CurrentRemoteDescription()
	if err != nil {
		return err
	}
	if remote == nil {
		p.pending = append(p.pending, c)
		return nil
	}
	if err := p.pc.AddRemoteCandidate(c.Candidate, c.Mid); err != nil {
		p.log.Warn("remote candidate rejected", zap.String("candidate", c.Candidate), zap.Error(err))
	}
	return nil
}

func (p *peer) flushCandidates() {
	pending := p.pending
	p.pending = nil
	for _, c := range pending {
		if err := p.pc.AddRemoteCandidate(c.Candidate, c.Mid); err != nil {
			p.log.Warn("remote candidate rejected", zap.String("candidate", c.Candidate), zap.Error(err))
		}
	}
}

func (p *peer) openChannel(ctx context.Context) error {
	if p.channel != nil {
		return nil
	}
	dc, err := p.pc.CreateDataChannel(p.label, nil)
	if err != nil {
		return err
	}
	p.channel = dc
	p.attach(ctx, nil, dc)
	if p.config.DisableAutoNegotiation {
		return p.pc.SetLocalDescription(datachannel.DescriptionTypeOffer)
	}
	return nil
}

// attach wires dc to stdout and, once open, stdin. cancel, when set, ends
// the session as soon as dc closes.
func (p *peer) attach(ctx context.Context, cancel context.CancelCauseFunc, dc *datachannel.DataChannel) {
	dc.OnMessage(func(m datachannel.Message) {
		p.print(m)
		if p.echo {
			if err := echo(dc, m); err != nil {
				p.log.Warn("echo failed", zap.Error(err))
			}
		}
	})
	dc.OnError(func(msg string) {
		p.log.Warn("data channel error", zap.String("label", dc.Label()), zap.String("error", msg))
	})
	dc.OnClosed(func() {
		p.log.Info("data channel closed", zap.String("label", dc.Label()))
		if cancel != nil {
			cancel(nil)
		}
	})
	dc.OnOpen(func() { p.startPump(ctx, dc) })
	if dc.IsOpen() {
		p.startPump(ctx, dc)
	}
}

func (p *peer) startPump(ctx context.Context, dc *datachannel.DataChannel) {
	p.pumpOnce.Do(func() {
		p.log.Info("data channel open", zap.String("label", dc.Label()))
		if p.echo {
			return
		}
		go p.pump(ctx, dc)
	})
}

// pump sends stdin lines as text messages and closes dc at end of input.
func (p *peer) pump(ctx context.Context, dc *datachannel.DataChannel) {
	scanner := bufio.NewScanner(p.stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := dc.SendText(scanner.Text()); err != nil {
			p.log.Warn("send failed", zap.Error(err))
			return
		}
	}
	if err := scanner.Err(); err != nil {
		p.log.Warn("reading stdin", zap.Error(err))
	}
	_ = dc.Close()
}

func (p *peer) print(m datachannel.Message) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	if m.IsString {
		fmt.Fprintf(p.stdout, "< %s\n", m.Text())
		return
	}
	fmt.Fprintf(p.stdout, "< [%d bytes]\n", len(m.Data))
}

func (p *peer) send(ctx context.Context, m *signaling.Message) {
	if err := p.client.Send(ctx, m); err != nil {
		p.log.Warn("signaling send failed", zap.Stringer("type", m.Type), zap.Error(err))
	}
}

func echo(dc *datachannel.DataChannel, m datachannel.Message) error {
	if m.IsString {
		return dc.SendText(m.Text())
	}
	return dc.Send(m.Data)
}
