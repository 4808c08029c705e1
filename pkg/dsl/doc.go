/*
Package dsl provides a Go DSL for programmatically constructing flow graphs.

It allows developers to define flows using a fluent builder instead of YAML or
JSON files. The result goes through the same validation as a flow file, so a
builder mistake is reported exactly like an authoring mistake.

Example usage:

	b := dsl.New("user", "transactions")

	b.Carousel("default").
		Option("onboard", "onboarding").
		Option("log_expense", "expense").Store("transactions.kind")

	b.MessageList("onboarding").
		Ask("What is your name?").Store("user.name").
		Ask("How old are you?").Expect("integer").Store("user.age").
		Then("default")

	b.MessageList("expense").
		Ask("How much did you spend?").Expect("float").Store("transactions.amount")

	graph, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	engine, err := botengine.New(graph)
*/
package dsl
