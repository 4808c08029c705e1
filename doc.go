/*
Package botengine interprets a declarative conversation flow for a chat bot
that receives events from a messaging webhook.

A flow graph (loaded with the flow package) is made of two node kinds:
selection nodes (menus whose options route to another node and may record
the chosen value) and prompt lists (ordered questions whose answers are
type checked and collected). The Engine keeps one durable session per user,
advances it one event at a time, and commits the collected answers as
records in the declared collections when a flow completes.

# Concept

Every inbound event is classified (selection, text response, delivery
receipt, opt-in or unrecognized), interpreted against the user's session
under a per-user lock, and persisted together with any committed records in
one atomic store write. The engine then hands the emitted content keys to a
Deliverer; turning a key into a platform message is the host's concern.

# Usage

	graph, err := flow.LoadFile("flow.yaml")
	if err != nil {
		log.Fatal(err)
	}

	eng, err := botengine.New(graph,
		botengine.WithStore(redis.New("localhost:6379", "", 0)),
		botengine.WithDeliverer(delivery.NewLog(content.NewResolver(graph, nil), logger)),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.HandleEvent(ctx, domain.RawEvent{
		SenderID:      "user-1",
		Kind:          domain.RawKindPostback,
		PayloadOrText: "LOG_INCOME",
		EventID:       "mid.1",
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Println(res.Outcome, res.ContentKeys)

The HTTP adapter (pkg/adapters/http) exposes HandleEvent as a webhook and
the Simulator drives it from a terminal.
*/
package botengine
