// Package route defines the vocabulary of the listen-mode routing table.
//
// A routing table maps every routing category (the default AID route, the
// ISO-DEP and T3T protocol routes, the A/B/F technology routes and the
// default system-code route) to a destination. A destination is either the
// host CPU or an execution environment (EE) identified by an opaque 8-bit id.
//
// # Destinations
//
// Ids with the high bit set belong to EEs reached through the host
// controller interface (UICC, embedded secure element). Ids with the high
// bit clear are "direct" EEs. Two values are reserved:
//
//   - Host (0x00): the host CPU
//   - Unrouted (0xFF): no suitable route; the category is left out of the
//     table instead of defaulting to the host
//
// # Overrides
//
// Runtime preferences are expressed as an Override per category. The zero
// value is Unset, meaning "use the compiled-in default".
package route
