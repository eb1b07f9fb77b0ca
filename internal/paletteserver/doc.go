// SPDX-License-Identifier: MPL-2.0

// Package paletteserver serves visibility payloads over SSH.
//
// Every session receives the payload for its identity and exits. A client that
// authenticates with a public key listed under identities.<name>.keys is that
// identity; any other key, and keyboard-interactive logins, are anonymous and
// receive false.
package paletteserver
