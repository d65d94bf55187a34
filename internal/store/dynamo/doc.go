// Package dynamo implements store.Table on a DynamoDB table with string
// partition key "pk", string sort key "sk" and TTL enabled on "expiry".
package dynamo
