package iam

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkiam "github.com/aws/aws-sdk-go-v2/service/iam"

	"ssmrun/internal/service/common"
	"ssmrun/internal/service/ec2"
	"ssmrun/internal/service/runcmd"
)

// Diagnose はインスタンスの状態、インスタンスプロファイルのロール、
// SSMエージェントの死活から、コマンドを受け付けられない原因を洗い出す
func Diagnose(ctx context.Context, client API, ins ec2.Instance, target runcmd.Target) (Diagnosis, error) {
	d := Diagnosis{
		InstanceId:   ins.InstanceId,
		InstanceName: ins.InstanceName,
		State:        ins.State,
		Liveness:     target.Liveness,
		AgentVersion: target.AgentVersion,
	}

	if ins.State != "running" {
		d.Findings = append(d.Findings, fmt.Sprintf("インスタンスが起動していません (%s)", ins.State))
	}

	if ins.InstanceProfileArn == "" {
		d.Findings = append(d.Findings, "インスタンスプロファイルがアタッチされていません")
	} else {
		d.InstanceProfile = profileName(ins.InstanceProfileArn)
		roles, err := describeRoles(ctx, client, d.InstanceProfile)
		if err != nil {
			return d, err
		}
		d.Roles = roles

		if len(roles) == 0 {
			d.Findings = append(d.Findings, fmt.Sprintf("インスタンスプロファイル %s にロールがありません", d.InstanceProfile))
		}
		for _, r := range roles {
			switch {
			case r.Err != nil:
				d.Findings = append(d.Findings, fmt.Sprintf("ロール %s のポリシーを確認できません: %v", r.Name, r.Err))
			case !r.HasCorePolicy:
				d.Findings = append(d.Findings, fmt.Sprintf("ロール %s に %s がアタッチされていません", r.Name, CorePolicyName))
			}
		}
	}

	// 権限やインスタンス状態に問題がないのに応答しない場合はエージェントか経路の問題
	if len(d.Findings) == 0 && target.Liveness != runcmd.LivenessOnline {
		d.Findings = append(d.Findings,
			"SSMエージェントが応答していません。エージェントの起動状態とSSMエンドポイントへの経路（VPCエンドポイントまたはNAT）を確認してください")
	}

	return d, nil
}

// describeRoles はインスタンスプロファイルのロールと、各ロールにアタッチされたポリシーを取得する
func describeRoles(ctx context.Context, client API, profile string) ([]RoleItem, error) {
	out, err := client.GetInstanceProfile(ctx, &sdkiam.GetInstanceProfileInput{
		InstanceProfileName: aws.String(profile),
	})
	if err != nil {
		return nil, fmt.Errorf("インスタンスプロファイル %s の取得に失敗: %w", profile, err)
	}
	if out.InstanceProfile == nil {
		return nil, nil
	}

	roles := make([]RoleItem, len(out.InstanceProfile.Roles))
	for i, r := range out.InstanceProfile.Roles {
		roles[i] = RoleItem{Name: aws.ToString(r.RoleName), Arn: aws.ToString(r.Arn)}
	}

	exec := common.NewParallelExecutor(4)
	var mu sync.Mutex
	for i := range roles {
		idx := i
		exec.Execute(func() {
			policies, err := attachedPolicies(ctx, client, roles[idx].Name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				roles[idx].Err = err
				return
			}
			roles[idx].AttachedPolicies = policies
			for _, p := range policies {
				if p == CorePolicyName {
					roles[idx].HasCorePolicy = true
				}
			}
		})
	}
	exec.Wait()

	return roles, nil
}

func attachedPolicies(ctx context.Context, client API, roleName string) ([]string, error) {
	paginator := sdkiam.NewListAttachedRolePoliciesPaginator(client, &sdkiam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListAttachedRolePolicies 失敗: %w", err)
		}
		for _, p := range page.AttachedPolicies {
			names = append(names, aws.ToString(p.PolicyName))
		}
	}
	return names, nil
}

// profileName はインスタンスプロファイルARNから名前を取り出す
// 例: arn:aws:iam::123456789012:instance-profile/path/builder-profile → builder-profile
func profileName(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// PrintDiagnosis は診断結果を表示する
func PrintDiagnosis(w io.Writer, d Diagnosis) {
	fmt.Fprintf(w, "🔍 %s (%s)\n", d.InstanceId, d.InstanceName)
	fmt.Fprintf(w, "  状態: %s\n", d.State)
	fmt.Fprintf(w, "  SSMエージェント: %s", d.Liveness)
	if d.AgentVersion != "" {
		fmt.Fprintf(w, " (v%s)", d.AgentVersion)
	}
	fmt.Fprintln(w)

	if d.InstanceProfile != "" {
		fmt.Fprintf(w, "  インスタンスプロファイル: %s\n", d.InstanceProfile)
	}
	for _, r := range d.Roles {
		mark := "✅"
		if !r.HasCorePolicy {
			mark = "❌"
		}
		fmt.Fprintf(w, "  %s ロール: %s\n", mark, r.Name)
		for _, p := range r.AttachedPolicies {
			fmt.Fprintf(w, "     - %s\n", p)
		}
	}

	fmt.Fprintln(w)
	if d.Healthy() {
		fmt.Fprintln(w, "✅ 問題は見つかりませんでした")
		return
	}
	fmt.Fprintf(w, "⚠️  %d件の問題が見つかりました:\n", len(d.Findings))
	for _, f := range d.Findings {
		fmt.Fprintf(w, "   - %s\n", f)
	}
}
