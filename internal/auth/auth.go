/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package auth provides authentication and authorization for WrenDB.

Security Model:
===============

The security model follows a "default deny" principle:
  - Users must be explicitly created before they can authenticate
  - Non-admin users must be explicitly granted SELECT on each table or view
  - The "admin" user is created during first-time setup

Views and Privileges:
=====================

Privileges are granted per schema object, so a user can be granted
access to a view without any access to the tables the view reads from.
This is the standard way to expose a restricted projection of a table.

Storage Schema:
===============

User and privilege data is stored in the same engine as schema data,
using reserved key prefixes:

  - user:<username>        : Stores User JSON (username, password hash)
  - priv:<user>:<object>   : Marks SELECT access on a table or view

Passwords are hashed with bcrypt. A dummy comparison is performed for
non-existent users to prevent username enumeration via timing.
*/
package auth

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"wrendb/internal/storage"
)

// AdminUsername is the reserved username for the database administrator.
const AdminUsername = "admin"

// PasswordLength is the default length for generated passwords.
const PasswordLength = 16

// passwordCharset contains characters used for password generation.
// Excludes ambiguous characters (0, O, l, 1, I) for readability.
const passwordCharset = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789!@#$%^&*"

// DefaultBcryptCost is the default cost factor for bcrypt hashing.
const DefaultBcryptCost = 10

// Key prefixes for system data in the storage engine.
const (
	userKeyPrefix = "user:"
	privKeyPrefix = "priv:"
)

// GenerateSecurePassword generates a cryptographically secure random password.
func GenerateSecurePassword(length int) (string, error) {
	if length <= 0 {
		length = PasswordLength
	}

	password := make([]byte, length)
	charsetLen := big.NewInt(int64(len(passwordCharset)))

	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", errors.New("failed to generate secure random number: " + err.Error())
		}
		password[i] = passwordCharset[idx.Int64()]
	}

	return string(password), nil
}

// User represents a database user account.
type User struct {
	Username     string // Unique identifier for the user
	PasswordHash string // bcrypt hash of the password
}

// Privilege records SELECT access for a user on a schema object.
// The object may be a table or a view; the registry does not care which.
type Privilege struct {
	ObjectName string
}

// Manager handles user authentication and object-level authorization.
// It is backed by the storage engine so accounts and privileges survive
// restarts.
type Manager struct {
	store storage.Engine
}

// NewManager creates an auth manager backed by the given storage engine.
func NewManager(store storage.Engine) *Manager {
	return &Manager{store: store}
}

// CreateUser creates a new user account with the given credentials.
// Returns an error if a user with the same username already exists.
func (m *Manager) CreateUser(username, password string) error {
	key := userKeyPrefix + username

	if _, err := m.store.Get(key); err == nil {
		return errors.New("user already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return errors.New("failed to hash password: " + err.Error())
	}

	user := User{Username: username, PasswordHash: string(hashedPassword)}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return m.store.Put(key, data)
}

// Authenticate verifies that the provided username and password are valid.
//
// A dummy bcrypt comparison runs for unknown usernames so the call takes
// the same time whether or not the user exists.
func (m *Manager) Authenticate(username, password string) bool {
	val, err := m.store.Get(userKeyPrefix + username)
	if err != nil {
		bcrypt.CompareHashAndPassword([]byte("$2a$10$dummy"), []byte(password))
		return false
	}

	var user User
	if err := json.Unmarshal(val, &user); err != nil {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// AlterUser replaces an existing user's password.
func (m *Manager) AlterUser(username, newPassword string) error {
	key := userKeyPrefix + username

	if _, err := m.store.Get(key); err != nil {
		return errors.New("user does not exist")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), DefaultBcryptCost)
	if err != nil {
		return errors.New("failed to hash password: " + err.Error())
	}

	user := User{Username: username, PasswordHash: string(hashedPassword)}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return m.store.Put(key, data)
}

// DropUser removes a user account and all of its privileges.
func (m *Manager) DropUser(username string) error {
	key := userKeyPrefix + username

	if _, err := m.store.Get(key); err != nil {
		return errors.New("user does not exist")
	}

	privs, err := m.store.Scan(privKeyPrefix + username + ":")
	if err != nil {
		return err
	}
	for privKey := range privs {
		if err := m.store.Delete(privKey); err != nil {
			return err
		}
	}

	return m.store.Delete(key)
}

// Grant grants SELECT on a table or view to a user.
// Returns an error if the user does not exist.
func (m *Manager) Grant(username, object string) error {
	if _, err := m.store.Get(userKeyPrefix + username); err != nil {
		return errors.New("user does not exist")
	}

	priv := Privilege{ObjectName: object}
	data, err := json.Marshal(priv)
	if err != nil {
		return err
	}

	return m.store.Put(privKeyPrefix+username+":"+object, data)
}

// Revoke removes a user's SELECT privilege on a table or view.
func (m *Manager) Revoke(username, object string) error {
	if _, err := m.store.Get(userKeyPrefix + username); err != nil {
		return errors.New("user does not exist")
	}

	key := privKeyPrefix + username + ":" + object
	if _, err := m.store.Get(key); err != nil {
		return errors.New("privilege does not exist")
	}

	return m.store.Delete(key)
}

// CheckAccess reports whether a user may read the given table or view.
// The admin user may read everything; other users need an explicit grant.
func (m *Manager) CheckAccess(username, object string) bool {
	if IsAdmin(username) {
		return true
	}
	_, err := m.store.Get(privKeyPrefix + username + ":" + object)
	return err == nil
}

// AdminExists checks if the admin user has been initialized.
func (m *Manager) AdminExists() bool {
	_, err := m.store.Get(userKeyPrefix + AdminUsername)
	return err == nil
}

// InitializeAdmin creates the admin user with the given password.
// This should only be called during first-time setup when no admin exists.
func (m *Manager) InitializeAdmin(password string) error {
	return m.CreateUser(AdminUsername, password)
}

// InitializeAdminWithGeneratedPassword creates the admin user with a
// cryptographically secure randomly generated password and returns it.
func (m *Manager) InitializeAdminWithGeneratedPassword() (string, error) {
	password, err := GenerateSecurePassword(PasswordLength)
	if err != nil {
		return "", err
	}

	if err := m.InitializeAdmin(password); err != nil {
		return "", err
	}

	return password, nil
}

// IsAdmin checks if the given username is the admin user.
func IsAdmin(username string) bool {
	return username == AdminUsername
}
