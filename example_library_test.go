package botengine_test

import (
	"context"
	"fmt"
	"log"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/dsl"
)

// ExampleNew_library demonstrates how to use the engine purely as a Go
// library, building the flow in code instead of reading a file.
func ExampleNew_library() {
	b := dsl.New("user")
	b.Carousel("default").Option("onboard", "onboarding")
	b.MessageList("onboarding").
		Ask("What is your name?").Store("user.name").
		Ask("How old are you?").Expect("integer").Store("user.age").
		Then("default")

	graph, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	eng, err := botengine.New(graph)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	events := []domain.RawEvent{
		{SenderID: "ada", Kind: domain.RawKindPostback, PayloadOrText: "ONBOARD", EventID: "1"},
		{SenderID: "ada", Kind: domain.RawKindMessage, PayloadOrText: "Ada", EventID: "2"},
		{SenderID: "ada", Kind: domain.RawKindMessage, PayloadOrText: "thirty-six", EventID: "3"},
		{SenderID: "ada", Kind: domain.RawKindMessage, PayloadOrText: "36", EventID: "4"},
	}
	for _, raw := range events {
		res, err := eng.HandleEvent(ctx, raw)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Outcome, res.ContentKeys)
	}

	records, _ := eng.Records(ctx, "user")
	fmt.Println(records[0].Fields["name"], records[0].Fields["age"])
	// Output:
	// advanced [onboarding_0]
	// advanced [onboarding_1]
	// reprompt [onboarding_1]
	// completed [default]
	// Ada 36
}
