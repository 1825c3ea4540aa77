package objectutil_test

import (
	"testing"

	"github.com/Lumoin/Verifiable-sub005/tpm2"
	"github.com/Lumoin/Verifiable-sub005/tpm2/objectutil"
	"github.com/stretchr/testify/require"
)

func TestNewRSAStorageKeyTemplateDefaults(t *testing.T) {
	pub := objectutil.NewRSAStorageKeyTemplate(2048)
	require.Equal(t, tpm2.ObjectTypeRSA, pub.Type)
	require.NotZero(t, pub.Attrs&tpm2.AttrFixedTPM)
	require.NotZero(t, pub.Attrs&tpm2.AttrFixedParent)
	require.NotZero(t, pub.Attrs&tpm2.AttrRestricted)
	require.NotZero(t, pub.Attrs&tpm2.AttrDecryptObj)
	require.EqualValues(t, 2048, pub.Params.RSABits)
}

func TestWithUserAuthModeRequirePolicyClearsAttr(t *testing.T) {
	pub := objectutil.NewRSAStorageKeyTemplate(2048, objectutil.WithUserAuthMode(objectutil.RequirePolicy))
	require.Zero(t, pub.Attrs&tpm2.AttrUserWithAuth)
}

func TestWithUserAuthModeAllowAuthValueSetsAttr(t *testing.T) {
	pub := objectutil.NewRSASigningKeyTemplate(2048, objectutil.WithUserAuthMode(objectutil.AllowAuthValue))
	require.NotZero(t, pub.Attrs&tpm2.AttrUserWithAuth)
}

func TestWithoutDictionaryAttackProtectionSetsNoDA(t *testing.T) {
	pub := objectutil.NewECCStorageKeyTemplate(0x0003, objectutil.WithoutDictionaryAttackProtection())
	require.NotZero(t, pub.Attrs&tpm2.AttrNoDA)
}

func TestWithProtectionGroupDuplicableClearsFixedTPM(t *testing.T) {
	pub := objectutil.NewRSAStorageKeyTemplate(2048, objectutil.WithProtectionGroup(objectutil.Duplicable))
	require.Zero(t, pub.Attrs&tpm2.AttrFixedTPM)
	require.NotZero(t, pub.Attrs&tpm2.AttrFixedParent)
}

func TestWithNameAlgOverridesDefault(t *testing.T) {
	pub := objectutil.NewRSAStorageKeyTemplate(2048, objectutil.WithNameAlg(tpm2.HashAlgorithmSHA384))
	require.Equal(t, tpm2.HashAlgorithmSHA384, pub.NameAlg)
}

func TestInvalidAuthModePanics(t *testing.T) {
	require.Panics(t, func() {
		objectutil.WithUserAuthMode(objectutil.AuthMode(99))(&tpm2.Public{})
	})
}
