// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

/*
Package websocket is the event bus between the coordinator and the operator
panels in the browser.

The hub owns a registry of event types. Each event type pairs a name with a
snapshot emitter, so a panel that subscribes mid-match receives the current
state immediately and then stays current through event frames. Commands flow
the other way: panels issue them, registered handlers execute them, and the
outcome surfaces as ordinary topic updates rather than replies.

Wire Protocol:

All frames are JSON text messages. Inbound frames from a panel:

	{"type": "subscribe", "event_types": ["controller_status"], "request_id": 1}
	{"type": "unsubscribe", "event_types": ["realtime_score"], "request_id": 2}
	{"type": "command", "command": "load_match", "data": {"match_id": "qm12"}}

Outbound frames to a panel:

	{"type": "subscribe", "initial_data": {"controller_status": {...}}, "request_id": 1}
	{"type": "unsubscribe", "unsubscribed_event_types": ["controller_status"], "request_id": 2}
	{"type": "event", "event_type": "controller_status", "data": {...}}
	{"type": "reload"}

Subscribe replies carry the current snapshot of every topic that was just
subscribed; unknown names are logged and omitted. Unsubscribe replies list
the subscriptions the client still holds. Commands are never answered:
failures are logged server-side and the panel keeps rendering topic state.

Usage:

	hub := websocket.NewHub(models.UISettings{SwapRedBlue: true})
	hub.AddEventType(models.TopicControllerStatus, controller.StatusPayload)
	hub.AddCommandHandler(models.CommandLoadMatch, controller.HandleLoadMatch)
	// run hub.Serve under the supervision tree, then on the upgrade path:
	hub.ServeClient(conn)
	// when state changes:
	hub.Notify(models.TopicControllerStatus)

Connection Lifecycle:

 1. The gateway upgrades the HTTP request and hands the connection over.
 2. The hub registers the client and starts its read and write pumps.
 3. The client subscribes to topics and receives snapshots plus updates.
 4. On disconnect the client is removed from every subscriber set.
 5. Hub shutdown closes all connections.

Each client buffers 256 outbound frames. A client that stops reading long
enough to fill its buffer is dropped from the affected topic rather than
allowed to stall delivery to everyone else.

Thread Safety:

All exported methods are safe for concurrent use. Snapshot emitters run
with the hub locked and must not call back into the hub; command handlers
run unlocked and may notify.
*/
package websocket
