// Package session maps client session state to an identity and decides
// whether that identity may create or change posts.
//
// Session state is an explicit State value handed in and out of every
// operation; nothing here reads request-scoped globals. The transport
// layer is responsible for persisting State between requests (see Store
// and TokenCodec).
//
// A State is Anonymous until Login succeeds and Anonymous again after
// Logout. Only Login produces an authenticated State.
package session
