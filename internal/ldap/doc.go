// Package ldap provides the directory-side collaborator for synchronization
// runs: connection establishment with simple-bind or Kerberos authentication,
// cookie-paged searches that return the complete result set, RFC 4514 DN value
// escaping, and normalization of Active Directory binary attributes
// (objectSid, objectGUID) into strings.
package ldap
