// Package domain contains the core model types, event definitions, and
// repository interfaces shared by all other packages.
//
// Nothing in here touches the network or the database; the shop service,
// the hub, and the repositories all depend on this package, never the
// other way around.
package domain
