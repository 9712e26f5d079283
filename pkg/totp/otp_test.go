package totp_test

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/pkg/totp"
)

func encodeSeed(seed string) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(seed))
}

// RFC 6238 appendix B.
var (
	seedSHA1   = encodeSeed("12345678901234567890")
	seedSHA256 = encodeSeed("12345678901234567890123456789012")
	seedSHA512 = encodeSeed("1234567890123456789012345678901234567890123456789012345678901234")
)

func TestGenerateSecretKey(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.Regexp(t, totp.ValidateSecretKeyRegex, secret)
	assert.Len(t, secret, 32, "20 bytes encode to 32 base32 chars")

	other, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestComputeCode_RFC6238Vectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		unix   int64
		secret string
		alg    totp.Algorithm
		want   string
	}{
		{59, seedSHA1, totp.AlgorithmSHA1, "94287082"},
		{59, seedSHA256, totp.AlgorithmSHA256, "46119246"},
		{59, seedSHA512, totp.AlgorithmSHA512, "90693936"},
		{1111111109, seedSHA1, totp.AlgorithmSHA1, "07081804"},
		{1111111109, seedSHA256, totp.AlgorithmSHA256, "68084774"},
		{1111111109, seedSHA512, totp.AlgorithmSHA512, "25091201"},
		{1111111111, seedSHA1, totp.AlgorithmSHA1, "14050471"},
		{1111111111, seedSHA256, totp.AlgorithmSHA256, "67062674"},
		{1111111111, seedSHA512, totp.AlgorithmSHA512, "99943326"},
		{1234567890, seedSHA1, totp.AlgorithmSHA1, "89005924"},
		{1234567890, seedSHA256, totp.AlgorithmSHA256, "91819424"},
		{1234567890, seedSHA512, totp.AlgorithmSHA512, "93441116"},
		{2000000000, seedSHA1, totp.AlgorithmSHA1, "69279037"},
		{2000000000, seedSHA256, totp.AlgorithmSHA256, "90698825"},
		{2000000000, seedSHA512, totp.AlgorithmSHA512, "38618901"},
		{20000000000, seedSHA1, totp.AlgorithmSHA1, "65353130"},
		{20000000000, seedSHA256, totp.AlgorithmSHA256, "77737706"},
		{20000000000, seedSHA512, totp.AlgorithmSHA512, "47863826"},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg)+"/"+tt.want, func(t *testing.T) {
			t.Parallel()
			step := totp.TimeStep(time.Unix(tt.unix, 0), 30)
			got, err := totp.ComputeCode(tt.secret, step, 8, tt.alg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeCode_SixDigitsAtStepOne(t *testing.T) {
	t.Parallel()

	got, err := totp.ComputeCode(seedSHA1, 1, 6, totp.AlgorithmSHA1)
	require.NoError(t, err)
	assert.Equal(t, "287082", got)

	ok, err := totp.Verify(totp.Params{Secret: seedSHA1}, "287082", time.Unix(59, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = totp.Verify(totp.Params{Secret: seedSHA1}, "287082", time.Unix(3600, 0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComputeCode_MatchesIndependentImplementation(t *testing.T) {
	t.Parallel()

	secret := "JBSWY3DPEHPK3PXP"
	at := time.Unix(59, 0)

	want, err := pqtotp.GenerateCodeCustom(secret, at, pqtotp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	got, err := totp.GenerateCode(totp.Params{Secret: secret}, at)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	ok, err := totp.Verify(totp.Params{Secret: secret}, got, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = totp.Verify(totp.Params{Secret: secret}, got, time.Unix(3600, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	for _, alg := range []struct {
		ours   totp.Algorithm
		theirs otp.Algorithm
	}{
		{totp.AlgorithmSHA256, otp.AlgorithmSHA256},
		{totp.AlgorithmSHA512, otp.AlgorithmSHA512},
	} {
		now := time.Unix(1700000000, 0)
		want, err := pqtotp.GenerateCodeCustom(secret, now, pqtotp.ValidateOpts{
			Period:    30,
			Digits:    otp.DigitsEight,
			Algorithm: alg.theirs,
		})
		require.NoError(t, err)
		got, err := totp.GenerateCode(totp.Params{Secret: secret, Digits: 8, Algorithm: alg.ours}, now)
		require.NoError(t, err)
		assert.Equal(t, want, got, string(alg.ours))
	}
}

func TestVerify_SkewWindow(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	params := totp.Params{Secret: secret}
	now := time.Unix(1_700_000_015, 0)

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"previous step", -30 * time.Second, true},
		{"current step", 0, true},
		{"next step", 30 * time.Second, true},
		{"two steps back", -60 * time.Second, false},
		{"two steps ahead", 60 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, err := totp.GenerateCode(params, now.Add(tt.offset))
			require.NoError(t, err)

			step, ok, err := totp.Match(params, code, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, totp.TimeStep(now.Add(tt.offset), 30), step)
			}
		})
	}
}

func TestVerify_MalformedCode(t *testing.T) {
	t.Parallel()

	params := totp.Params{Secret: seedSHA1}
	for _, code := range []string{"", "12345", "1234567", "12a456", "12 456", "١٢٣٤٥٦", " 287082", "287082 ", "\t287082\n"} {
		ok, err := totp.Verify(params, code, time.Unix(59, 0))
		assert.ErrorIs(t, err, totp.ErrMalformedCode, "code %q", code)
		assert.False(t, ok)
	}
}

func TestVerify_InvalidParams(t *testing.T) {
	t.Parallel()

	_, err := totp.Verify(totp.Params{}, "123456", time.Now())
	assert.ErrorIs(t, err, totp.ErrMissingSecret)

	_, err = totp.Verify(totp.Params{Secret: "not-base32!"}, "123456", time.Now())
	assert.ErrorIs(t, err, totp.ErrInvalidSecret)

	_, err = totp.Verify(totp.Params{Secret: seedSHA1, Algorithm: "MD5"}, "123456", time.Now())
	assert.ErrorIs(t, err, totp.ErrUnsupportedAlgorithm)

	_, err = totp.Verify(totp.Params{Secret: seedSHA1, Digits: 4}, "1234", time.Now())
	assert.ErrorIs(t, err, totp.ErrInvalidDigits)
}

func TestProvisioningURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  totp.Params
		want    string
		wantErr error
	}{
		{
			name: "defaults",
			params: totp.Params{
				Secret:      "JBSWY3DPEHPK3PXP",
				AccountName: "caregiver@example.com",
				Issuer:      "Rafiki",
			},
			want: "otpauth://totp/Rafiki:caregiver@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Rafiki&algorithm=SHA1&digits=6&period=30",
		},
		{
			name: "issuer with spaces",
			params: totp.Params{
				Secret:      "JBSWY3DPEHPK3PXP",
				AccountName: "mama@example.com",
				Issuer:      "Rafiki Assist",
			},
			want: "otpauth://totp/Rafiki%20Assist:mama@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Rafiki%20Assist&algorithm=SHA1&digits=6&period=30",
		},
		{
			name: "lowercase secret is normalized",
			params: totp.Params{
				Secret:      "jbsw y3dp ehpk 3pxp",
				AccountName: "a@b.c",
				Issuer:      "R",
				Algorithm:   totp.AlgorithmSHA256,
				Digits:      8,
				Period:      60,
			},
			want: "otpauth://totp/R:a@b.c?secret=JBSWY3DPEHPK3PXP&issuer=R&algorithm=SHA256&digits=8&period=60",
		},
		{
			name:    "missing account",
			params:  totp.Params{Secret: "JBSWY3DPEHPK3PXP", Issuer: "R"},
			wantErr: totp.ErrMissingAccountName,
		},
		{
			name:    "missing issuer",
			params:  totp.Params{Secret: "JBSWY3DPEHPK3PXP", AccountName: "a@b.c"},
			wantErr: totp.ErrMissingIssuer,
		},
		{
			name:    "colon in issuer",
			params:  totp.Params{Secret: "JBSWY3DPEHPK3PXP", AccountName: "a@b.c", Issuer: "Rafiki:Assist"},
			wantErr: totp.ErrInvalidLabel,
		},
		{
			name:    "colon in account",
			params:  totp.Params{Secret: "JBSWY3DPEHPK3PXP", AccountName: "mama:a@b.c", Issuer: "R"},
			wantErr: totp.ErrInvalidLabel,
		},
		{
			name:    "missing secret",
			params:  totp.Params{AccountName: "a@b.c", Issuer: "R"},
			wantErr: totp.ErrMissingSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.ProvisioningURI(tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProvisioningURI_ParsesInAuthenticatorLibrary(t *testing.T) {
	t.Parallel()

	uri, err := totp.ProvisioningURI(totp.Params{
		Secret:      "JBSWY3DPEHPK3PXP",
		AccountName: "caregiver@example.com",
		Issuer:      "Rafiki Assist",
	})
	require.NoError(t, err)

	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)
	assert.Equal(t, "totp", key.Type())
	assert.Equal(t, "Rafiki Assist", key.Issuer())
	assert.Equal(t, "caregiver@example.com", key.AccountName())
	assert.Equal(t, "JBSWY3DPEHPK3PXP", key.Secret())
	assert.Equal(t, uint64(30), key.Period())
}

func TestFormatSecret(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "JBSW Y3DP EHPK 3PXP", totp.FormatSecret("JBSWY3DPEHPK3PXP"))
	assert.Equal(t, "JBSW Y3", totp.FormatSecret("jbswy3"))
	assert.Equal(t, "JBSWY3DPEHPK3PXP", strings.ReplaceAll(totp.FormatSecret("JBSWY3DPEHPK3PXP"), " ", ""))
}
