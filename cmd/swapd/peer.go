package main

import (
	"context"
	"net"

	"github.com/btcsuite/btclog"
	"github.com/davecgh/go-spew/spew"

	"github.com/comitswap/swapd/keyoracle"
	"github.com/comitswap/swapd/registry"
	"github.com/comitswap/swapd/swaplog"
	"github.com/comitswap/swapd/wireproto"
)

// peerServer accepts inbound negotiation-protocol connections and routes
// each one's REQUEST frames to the registry. peerServer only serves the
// listening side described by spec §4.3; it does not dial out or send
// swap proposals.
type peerServer struct {
	reg    *registry.Registry
	oracle *keyoracle.Oracle
	log    btclog.Logger
}

func newPeerServer(reg *registry.Registry, oracle *keyoracle.Oracle, log btclog.Logger) *peerServer {
	return &peerServer{reg: reg, oracle: oracle, log: log}
}

// Serve accepts connections on ln until ctx is canceled.
func (p *peerServer) Serve(ctx context.Context, ln net.Listener) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Errorf("accept: %v", err)
			continue
		}
		go p.handle(ctx, conn)
	}
}

func (p *peerServer) handle(ctx context.Context, nc net.Conn) {
	defer nc.Close()

	c := wireproto.NewConn(nc, p.log)
	errCh := make(chan error, 1)
	go func() { errCh <- c.ReadLoop(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				p.log.Infof("peer %s disconnected: %v", nc.RemoteAddr(), err)
			}
			return
		case frame, ok := <-c.Incoming():
			if !ok {
				return
			}
			p.handleFrame(ctx, c, frame)
		}
	}
}

// handleFrame dispatches one incoming REQUEST frame. Only the "SWAP"
// payload type exists today; anything else yields SE02 per spec §4.3.
func (p *peerServer) handleFrame(ctx context.Context, c *wireproto.Conn, frame wireproto.Frame) {
	p.log.Tracef("received frame %d: %v", frame.ID, swaplog.NewLogClosure(func() string {
		return spew.Sdump(frame)
	}))

	if frame.Payload.Type != "SWAP" {
		p.respond(c, frame.ID, wireproto.StatusUnknownRequestType, nil)
		return
	}

	missing := wireproto.MissingMandatoryHeaders(frame.Headers, wireproto.SwapRequestMandatoryHeaders)
	var unknown []string
	for name := range frame.Headers {
		known := !wireproto.Mandatory(name)
		for _, want := range wireproto.SwapRequestMandatoryHeaders {
			known = known || name == want
		}
		if !known {
			unknown = append(unknown, name)
		}
	}
	if len(missing) > 0 || len(unknown) > 0 {
		p.respond(c, frame.ID, wireproto.StatusUnsupportedHeaders, nil)
		return
	}

	req, err := requestFromFrame(frame)
	if err != nil {
		p.log.Warnf("malformed SWAP request %d: %v", frame.ID, err)
		p.respond(c, frame.ID, wireproto.StatusMalformedFrame, nil)
		return
	}

	accept, decline, err := p.reg.DispatchIncoming(ctx, req)
	if err != nil {
		p.log.Errorf("dispatch swap %s: %v", req.SwapId, err)
		p.respond(c, frame.ID, wireproto.StatusReject, nil)
		return
	}

	var resp wireproto.Frame
	switch {
	case accept != nil:
		resp, err = acceptToResponse(frame.ID, *accept)
	case decline != nil:
		resp, err = declineToResponse(frame.ID, *decline)
	}
	if err != nil {
		p.log.Errorf("build response for swap %s: %v", req.SwapId, err)
		return
	}
	if err := c.Send(resp); err != nil {
		p.log.Errorf("send response for swap %s: %v", req.SwapId, err)
	}
}

func (p *peerServer) respond(c *wireproto.Conn, requestID uint64, status wireproto.StatusCode, body interface{}) {
	resp, err := wireproto.NewResponse(requestID, status, body)
	if err != nil {
		p.log.Errorf("build %s response: %v", status, err)
		return
	}
	if err := c.Send(resp); err != nil {
		p.log.Errorf("send %s response: %v", status, err)
	}
}
