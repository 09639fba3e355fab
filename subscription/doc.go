// Package subscription orchestrates the path from a followed link to a
// verified hub subscription.
//
// Link lifecycle events arrive over NATS. For each new link the manager
// fetches the page, discovers its feed and hub, and negotiates a
// PubSubHubbub lease, reusing an existing subscription when another link
// already follows the same feed. Every network step gets a bounded retry
// budget; a link whose page yields no feed, or whose hub keeps refusing,
// is left behind without failing the pipeline.
package subscription
