/*
Package flow loads declarative flow descriptions into a validated domain.FlowGraph.

A flow description declares the domain collections and a map of nodes. Each
node is either a "carousel" (a selection node with options) or a
"message_list" (an ordered sequence of prompts followed by a target node).
Descriptions are accepted as JSON or YAML; validation runs in a single pass
and reports every problem at once, so a malformed flow is rejected at load
time instead of being discovered while serving webhook traffic.
*/
package flow
