// Package infra contains technical adapters such as the notification
// gateways, the Redis location index, the Postgres repositories and the
// metrics exporters. These packages should depend only on the interfaces
// defined in the core packages.
package infra
