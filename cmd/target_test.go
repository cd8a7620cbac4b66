package cmd

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iamsvc "ssmrun/internal/service/iam"
	"ssmrun/internal/service/runcmd"
	ssmsvc "ssmrun/internal/service/ssm"
)

const builderProfile = "arn:aws:iam::123456789012:instance-profile/ue5-builder"

func builders(w *world) {
	w.ec2.instances = []types.Instance{
		instance("i-01", "ue5-builder-1", types.InstanceStateNameRunning, builderProfile),
		instance("i-02", "ue5-builder-2", types.InstanceStateNameRunning, builderProfile),
		instance("i-03", "web-1", types.InstanceStateNameStopped, ""),
	}
}

func TestTargetLs(t *testing.T) {
	w := newWorld()
	builders(w)
	w.svc.SetLiveness("i-02", runcmd.LivenessOffline)

	res := w.run(t, "", "target", "ls")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "ue5-builder-1")
	assert.Contains(t, res.stdout, "web-1")
	assert.Contains(t, res.stdout, "Online")
	assert.Contains(t, res.stdout, "Offline")
	assert.Contains(t, res.stdout, "合計: 3件")

	res = w.run(t, "", "target", "ls", "--name", "ue5-*")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "合計: 2件")
	assert.NotContains(t, res.stdout, "web-1")

	res = w.run(t, "", "target", "ls", "--name", "nothing")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "インスタンスが見つかりませんでした")
}

func TestTargetLs_Stack(t *testing.T) {
	w := newWorld()
	builders(w)
	w.cfn.stacks = map[string][]string{"builders": {"i-02"}}

	res := w.run(t, "", "target", "ls", "--stack", "builders")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "ue5-builder-2")
	assert.Contains(t, res.stdout, "合計: 1件")

	res = w.run(t, "", "target", "ls", "--stack", "missing")
	require.Error(t, res.err)
}

func TestTargetDiagnose(t *testing.T) {
	w := newWorld()
	builders(w)
	w.iam.profiles["ue5-builder"] = []string{"ue5-builder-role"}
	w.iam.policies["ue5-builder-role"] = []string{iamsvc.CorePolicyName}

	res := w.run(t, "", "target", "diagnose", "i-01")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "ue5-builder-role")
	assert.Contains(t, res.stdout, "問題は見つかりませんでした")

	w.iam.policies["ue5-builder-role"] = nil
	res = w.run(t, "", "target", "diagnose", "i-01")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, iamsvc.CorePolicyName+" がアタッチされていません")

	res = w.run(t, "", "target", "diagnose", "i-99")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "見つかりません")
}

func TestTargetSession(t *testing.T) {
	w := newWorld()
	builders(w)

	res := w.run(t, "", "target", "session", "-i", "i-02", "--region", "ap-northeast-1", "--profile", "build")
	require.NoError(t, res.err)
	require.Len(t, w.sessions, 1)
	assert.Equal(t, ssmsvc.SessionOptions{Region: "ap-northeast-1", Profile: "build", InstanceId: "i-02"}, w.sessions[0])

	res = w.run(t, "1\n", "target", "session")
	require.NoError(t, res.err)
	require.Len(t, w.sessions, 2)
	assert.Equal(t, "i-01", w.sessions[1].InstanceId)
	assert.Contains(t, res.stdout, "選択されたインスタンス")

	res = w.run(t, "9\n", "target", "session")
	require.Error(t, res.err)
	assert.Len(t, w.sessions, 2)
}
