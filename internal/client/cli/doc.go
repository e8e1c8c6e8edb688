// Package cli implements the authctl commands:
//
//	login [identifier]          prompt for the password, print a token pair
//	refresh <refresh_token>     rotate a refresh token
//	logout <access_token>       revoke the session family
//	whoami <access_token>       print the user id behind an access token
//	hash-password [algorithm]   print a password hash (bcrypt or argon2id)
//
// Token pairs are printed as JSON so they can be piped into other tools.
package cli
