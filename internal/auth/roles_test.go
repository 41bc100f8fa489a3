package auth

import "testing"

func TestRegistry_GrantAndCheck(t *testing.T) {
	r := NewRegistry()
	r.Grant("operator-1", RoleOperator)

	if !r.IsAuthorized("operator-1", RoleOperator) {
		t.Error("granted role not recognized")
	}
	if r.IsAuthorized("operator-1", RoleOwner) {
		t.Error("operator must not pass an owner check")
	}
	if r.IsAuthorized("stranger", RoleOperator) {
		t.Error("ungranted address passed a role check")
	}
}

func TestRegistry_OwnerImpliesOperator(t *testing.T) {
	r := NewRegistry()
	r.Grant("owner-1", RoleOwner)

	if !r.IsAuthorized("owner-1", RoleOwner) {
		t.Error("owner check failed")
	}
	if !r.IsAuthorized("owner-1", RoleOperator) {
		t.Error("owner should pass operator checks")
	}
	if r.IsAuthorized("owner-1", RolePriceUpdater) {
		t.Error("owner should not implicitly hold the price updater role")
	}
}

func TestRegistry_CaseInsensitiveAddresses(t *testing.T) {
	r := NewRegistry()
	r.Grant("0xABCDEF", RoleOperator)

	if !r.IsAuthorized("0xabcdef", RoleOperator) {
		t.Error("address comparison should ignore case")
	}
	if !r.IsAuthorized("0xAbCdEf", RoleOperator) {
		t.Error("mixed-case address failed role check")
	}
}

func TestRegistry_EmptyAddress(t *testing.T) {
	r := NewRegistry()
	if r.IsAuthorized("", RoleOperator) {
		t.Error("empty address must never be authorized")
	}
}
