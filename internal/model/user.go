package model

import "time"

// User represents a marketplace profile as stored in the `users` table.
// The profile mirrors an identity held by the identity provider; the
// provider's uid is kept in ExternalRef so a verified credential can be
// resolved back to the local record.  The json tags are omitted here
// because these structs are used by the repository and service layers;
// handlers define their own response types.
//
// Fields:
//  ID          – opaque primary key (UUID string).
//  Name        – display name shown next to published spots.
//  Email       – unique email address, stored lower-cased.
//  ExternalRef – unique identity-provider uid.
//  CreatedAt   – timestamp of creation.
type User struct {
    ID          string    // users.id
    Name        string    // users.name
    Email       string    // users.email
    ExternalRef string    // users.external_ref
    CreatedAt   time.Time // users.created_at
}

// Credential models an entry in the `credentials` table owned by the
// local identity provider.  Only the bcrypt hash of the password is
// stored.
//
// Fields:
//  UID          – identity-provider uid (UUID string).
//  Email        – unique login email.
//  DisplayName  – name given at registration.
//  PasswordHash – bcrypt hash.
//  CreatedAt    – timestamp of creation.
type Credential struct {
    UID          string    // credentials.uid
    Email        string    // credentials.email
    DisplayName  string    // credentials.display_name
    PasswordHash string    // credentials.password_hash
    CreatedAt    time.Time // credentials.created_at
}
